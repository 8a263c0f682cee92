package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// command is the signature shared by every REPL command. args are the
// whitespace-separated tokens after the command name.
type command func(ctx context.Context, args []string) error

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Callback(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	Me(ctx context.Context, args []string) error
	Refresh(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Board(ctx context.Context, args []string) error
	Add(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Move(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Reorder(ctx context.Context, args []string) error
	Stats(ctx context.Context, args []string) error
	Checkout(ctx context.Context, args []string) error
	Confirm(ctx context.Context, args []string) error
	Onboard(ctx context.Context, args []string) error
	Profile(ctx context.Context, args []string) error
	Generate(ctx context.Context, args []string) error
}

// runREPL starts a simple read-eval-print loop for the joboost CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current session (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help                 - show available commands
//	  - register             - create an account
//	  - login                - authenticate with email and password
//	  - callback [url]       - finish a delegated (social) login
//	  - exit | quit          - leave the program
//
//	Logged in:
//	  - me                   - re-check the session and show the account
//	  - refresh              - reload applications from the server
//	  - (l)ist | board       - list applications, flat or by status
//	  - add | edit <id>      - create or edit an application
//	  - show <id>            - fetch and print one application
//	  - move <id> <status>   - change the status of an application
//	  - delete <id>          - delete an application
//	  - reorder <id> <pos>   - reorder within a status column
//	  - stats                - per-status counts
//	  - checkout [plan]      - open a payment checkout
//	  - confirm <url|id>     - confirm a checkout after paying
//	  - onboard | profile    - fill in or show the career profile
//	  - generate <id> <kind> - write a cv or cover letter for an application
//	  - logout               - log out
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("jb %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var run command
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: me, refresh, (l)ist, board, add, edit, show, move, delete, reorder, stats, checkout, confirm, onboard, profile, generate, logout, exit")
			} else {
				printlnFn("Available commands: register, login, callback, exit")
			}
		case "register":
			run = a.Register
		case "login":
			run = a.Login
		case "callback":
			run = a.Callback
		case "logout":
			run = a.Logout
		case "me":
			run = a.Me
		case "refresh":
			run = a.Refresh
		case "l", "list":
			run = a.List
		case "board":
			run = a.Board
		case "add":
			run = a.Add
		case "edit":
			run = a.Edit
		case "show":
			run = a.Show
		case "move":
			run = a.Move
		case "delete":
			run = a.Delete
		case "reorder":
			run = a.Reorder
		case "stats":
			run = a.Stats
		case "checkout":
			run = a.Checkout
		case "confirm":
			run = a.Confirm
		case "onboard":
			run = a.Onboard
		case "profile":
			run = a.Profile
		case "generate":
			run = a.Generate
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if run != nil {
			if err := run(ctx, args); err != nil && !errors.Is(err, errGated) {
				printlnFn("Error:", err)
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}
