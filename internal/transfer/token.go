package transfer

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophxfer/internal/common"
)

const (
	// UploadTokenLength is the decoded size of an upload token.
	UploadTokenLength = 27
	// UploadTokenEncodedLength is its length on the wire.
	UploadTokenEncodedLength = UploadTokenLength * 4 / 3
)

// parseUploadResponse interprets the non-empty body of a successful chunk
// upload: either the upload token, or a numeric error code.
func parseUploadResponse(body []byte) ([]byte, error) {
	if len(body) == UploadTokenEncodedLength {
		token, err := base64.RawURLEncoding.DecodeString(string(body))
		if err == nil && len(token) == UploadTokenLength {
			return token, nil
		}
	}

	code, err := strconv.Atoi(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, &common.ServerError{Code: common.CodeInternal, Body: string(body), Err: common.ErrTokenDecode}
	}
	return nil, &common.ServerError{Code: code, Body: string(body)}
}

// EncodeUploadToken renders a token the way the server sends it.
func EncodeUploadToken(token []byte) string {
	return base64.RawURLEncoding.EncodeToString(token)
}
