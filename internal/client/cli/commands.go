package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/dmitrijs2005/gophxfer/internal/cryptox"
	"github.com/dmitrijs2005/gophxfer/internal/transfer"
)

var errUsage = errors.New("usage")

func encodeFileKey(fk []byte) string {
	return base64.RawURLEncoding.EncodeToString(fk)
}

// Put uploads args[0] and registers it as args[1], or its base name.
func (a *App) Put(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: put <path> [name]", errUsage)
	}
	path := args[0]
	name := filepath.Base(path)
	if len(args) == 2 {
		name = args[1]
	}

	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}

	key, ctriv, err := cryptox.NewTransferKey()
	if err != nil {
		return err
	}

	tempURL, err := a.api.RequestUpload(ctx, st.Size())
	if err != nil {
		return fmt.Errorf("request upload: %w", err)
	}

	return a.run(ctx, transfer.NewUpload(path, name, st.Size(), key, ctriv), tempURL)
}

// Get downloads node args[0] to args[1], or to its name. Optional args[2]
// and args[3] restrict the bytes written to [start, end).
func (a *App) Get(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) == 3 || len(args) > 4 {
		return fmt.Errorf("%w: get <name> [path [start end]]", errUsage)
	}
	name := args[0]
	path := name
	if len(args) >= 2 {
		path = args[1]
	}

	window := transfer.Unbounded
	if len(args) == 4 {
		start, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: bad start %q", errUsage, args[2])
		}
		end, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil || end < start {
			return fmt.Errorf("%w: bad end %q", errUsage, args[3])
		}
		window = transfer.Window{Start: start, End: end}
	}

	d, err := a.api.RequestDownload(ctx, name)
	if err != nil {
		return fmt.Errorf("request download: %w", err)
	}

	fk, err := base64.RawURLEncoding.DecodeString(d.Key)
	if err != nil {
		return fmt.Errorf("decode file key: %w", err)
	}
	raw, ctriv, metaMAC, err := cryptox.ParseFileKey(fk)
	if err != nil {
		return err
	}
	key, err := cryptox.NewSymmCipher(raw)
	if err != nil {
		return err
	}

	t := transfer.NewDownload(path, name, d.Size, key, ctriv, metaMAC)
	t.Window = window

	return a.run(ctx, t, d.TempURL)
}

// List prints the files registered on the server.
func (a *App) List(ctx context.Context, _ []string) error {
	nodes, err := a.api.ListNodes(ctx)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		fmt.Fprintln(a.out, "No files")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, n := range nodes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", n.Name, humanize.IBytes(uint64(n.Size)), humanize.Time(n.Created))
	}
	return tw.Flush()
}

// Pending prints interrupted transfers kept in the resume store.
func (a *App) Pending(ctx context.Context, _ []string) error {
	recs, err := a.resume.List(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "Nothing to resume")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s / %s\n", r.ID.String()[:8], r.Direction, r.Remote,
			humanize.IBytes(uint64(r.ConfirmedBytes())), humanize.IBytes(uint64(r.Size)))
	}
	return tw.Flush()
}

// Resume restarts interrupted transfers. With an argument only those whose
// id starts with it are resumed.
func (a *App) Resume(ctx context.Context, args []string) error {
	recs, err := a.resume.List(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, r := range recs {
		if len(args) > 0 && !strings.HasPrefix(r.ID.String(), args[0]) {
			continue
		}

		t, err := transfer.Restore(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", r.ID, err))
			continue
		}
		if err := a.run(ctx, t, r.TempURL); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
