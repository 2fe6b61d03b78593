package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Put(ctx context.Context, args []string) error
	Get(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Pending(ctx context.Context, args []string) error
	Resume(ctx context.Context, args []string) error
	Unlock(ctx context.Context, args []string) error
	Reset(ctx context.Context, args []string) error
}

// runREPL reads commands from scanner and dispatches them to a until EOF,
// "exit" or "quit", or until ctx is cancelled.
//
//	put <path> [name]                  upload a file
//	get <name> [path [start end]]      download a file, optionally a byte range
//	list | ls                          files on the server
//	pending                            interrupted transfers
//	resume [id-prefix]                 restart interrupted transfers
//	unlock                             enter the resume passphrase again
//	reset                              forget all interrupted transfers
//	exit | quit                        leave the program
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, scanner *bufio.Scanner) {
	commands := map[string]func(context.Context, []string) error{
		"put":     a.Put,
		"get":     a.Get,
		"list":    a.List,
		"ls":      a.List,
		"pending": a.Pending,
		"resume":  a.Resume,
		"unlock":  a.Unlock,
		"reset":   a.Reset,
	}

	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn("xfer> ")
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn("Available commands: put, get, list, pending, resume, unlock, reset, exit")
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		fn, ok := commands[cmd]
		if !ok {
			printlnFn("Unknown command:", cmd)
			continue
		}
		if err := fn(ctx, args); err != nil {
			printlnFn("Error:", err)
		}
	}
}
