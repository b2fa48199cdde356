package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	List(ctx context.Context) error
	New(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	AddSection(ctx context.Context, args []string) error
	Rename(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Restore(ctx context.Context, args []string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Sync(ctx context.Context) error
	Merge(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: register, login, exit"
	helpLoggedIn  = "Available commands: (l)ist, new <pwd|txt> <name>, show <id>, addsection <id>, " +
		"rename <id> <name>, delete <id>, restore <id>, commit, rollback, sync, merge <id>, logout, exit"
)

// runREPL starts a simple read-eval-print loop.
//
// It reads a line from reader, parses the first token as the command and
// dispatches to methods on a; the remaining tokens are passed as arguments.
// The loop exits on EOF, when ctx is done, or when the user types "exit" or
// "quit". A command error is printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for ctx.Err() == nil {
		printlnFn(fmt.Sprintf("pk %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if !a.isLoggedIn() {
			switch cmd {
			case "help", "register", "login", "exit", "quit":
			default:
				printlnFn("Please log in first. " + helpLoggedOut)
				continue
			}
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
		case "register":
			err = a.Register(ctx)
		case "login":
			err = a.Login(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "l", "list":
			err = a.List(ctx)
		case "new":
			err = a.New(ctx, args)
		case "show":
			err = a.Show(ctx, args)
		case "addsection":
			err = a.AddSection(ctx, args)
		case "rename":
			err = a.Rename(ctx, args)
		case "delete":
			err = a.Delete(ctx, args)
		case "restore":
			err = a.Restore(ctx, args)
		case "commit":
			err = a.Commit(ctx)
		case "rollback":
			err = a.Rollback(ctx)
		case "sync":
			err = a.Sync(ctx)
		case "merge":
			err = a.Merge(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
