package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/client"
	"github.com/dmitrijs2005/authkeeper/internal/client/services"
	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// Indirections swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// report prints err for the user and returns it.
func (a *App) report(err error) error {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		fmt.Fprintln(a.out, "Error:", apiErr.Message)
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintln(a.out, "Error: server unavailable")
	default:
		fmt.Fprintln(a.out, "Error:", err)
	}

	if errors.Is(err, services.ErrNotLoggedIn) || errors.Is(err, services.ErrSessionExpired) {
		a.setEmail("")
	}
	return err
}

func (a *App) readPassword(prompt string) (string, error) {
	pw, err := getPassword(prompt, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

func (a *App) readCredentials() (string, string, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", "", err
	}
	password, err := a.readPassword("Enter password")
	if err != nil {
		return "", "", err
	}
	return email, password, nil
}

func (a *App) Register(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return a.report(err)
	}

	p, err := a.authService.Register(ctx, email, password)
	if err != nil {
		return a.report(err)
	}

	a.setEmail(p.Email)
	fmt.Fprintln(a.out, "Registered and signed in as", p.Email)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return a.report(err)
	}

	p, err := a.authService.Login(ctx, email, password)
	if err != nil {
		return a.report(err)
	}

	a.setEmail(p.Email)
	fmt.Fprintln(a.out, "Signed in as", p.Email)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return a.report(err)
	}
	a.setEmail("")
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.authService.Refresh(ctx); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Tokens refreshed")
	return nil
}

func (a *App) ForgotPassword(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.report(err)
	}

	if err := a.authService.ForgotPassword(ctx, email); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "A reset code was sent to", email)
	return nil
}

func (a *App) ResetPassword(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.report(err)
	}
	otp, err := getSimpleText(a.reader, "Enter the code from the email", a.out)
	if err != nil {
		return a.report(err)
	}
	password, err := a.readPassword("Enter new password")
	if err != nil {
		return a.report(err)
	}

	if err := a.authService.ResetPassword(ctx, email, otp, password); err != nil {
		return a.report(err)
	}

	current, _ := a.authService.CurrentEmail(ctx)
	a.setEmail(current)
	fmt.Fprintln(a.out, "Password changed, please log in again")
	return nil
}

func (a *App) Me(ctx context.Context) error {
	p, err := a.authService.Me(ctx)
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "ID:      %s\n", p.ID)
	fmt.Fprintf(a.out, "Email:   %s\n", p.Email)
	fmt.Fprintf(a.out, "Active:  %t\n", p.IsActive)
	if p.AvatarKey != "" {
		fmt.Fprintf(a.out, "Avatar:  %s\n", p.AvatarKey)
	}
	fmt.Fprintf(a.out, "Created: %s\n", p.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func (a *App) Avatar(ctx context.Context, path string) error {
	up, err := a.authService.UploadAvatar(ctx, path)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Avatar uploaded:", up.Key)
	return nil
}
