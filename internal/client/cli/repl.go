package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App implements
// it; tests use a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) error
	ForgotPassword(ctx context.Context) error
	ResetPassword(ctx context.Context) error
	Me(ctx context.Context) error
	Avatar(ctx context.Context, path string) error
}

// runREPL reads commands from scanner until EOF, "exit" or "quit". Handlers
// report their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("authctl %s> ", statusFn()))
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
			if a.isLoggedIn() {
				printlnFn("Available commands: me, avatar <file>, refresh, logout, forgot, reset, exit")
			} else {
				printlnFn("Available commands: register, login, forgot, reset, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "forgot":
			_ = a.ForgotPassword(ctx)

		case "reset":
			_ = a.ResetPassword(ctx)

		case "me":
			_ = a.Me(ctx)

		case "avatar":
			if len(args) != 1 {
				printlnFn("Usage: avatar <file>")
				continue
			}
			_ = a.Avatar(ctx, args[0])

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
