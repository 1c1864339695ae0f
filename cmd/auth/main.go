package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/aussiebroadwan/sessiond/internal/auth/app"
	"github.com/aussiebroadwan/sessiond/internal/auth/audit"
	"github.com/aussiebroadwan/sessiond/internal/auth/service"
)

const usage = `usage:
  auth [serve]                                   run the HTTP service
  auth user add -email E [-name N] [-password P] [-mfa]
                                                 create an account; the password is read from stdin when -password is omitted
  auth audit verify                              check the audit hash chain`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatalf("auth: %v", err)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	switch cmd {
	case "serve":
		application, err := app.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		return application.Run(ctx)

	case "user":
		if len(args) == 0 || args[0] != "add" {
			return errors.New(usage)
		}
		return userAdd(ctx, cfg, args[1:], stdin, stdout)

	case "audit":
		if len(args) == 0 || args[0] != "verify" {
			return errors.New(usage)
		}
		return auditVerify(ctx, cfg, stdout)

	default:
		return errors.New(usage)
	}
}

func userAdd(ctx context.Context, cfg app.Config, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("user add", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	name := fs.String("name", "", "display name")
	password := fs.String("password", "", "account password")
	mfa := fs.Bool("mfa", false, "enroll a TOTP second factor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *password == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	logger := app.NewLogger(cfg)
	db, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	hasher, err := app.NewPasswordHasher(cfg)
	if err != nil {
		return err
	}

	users := &service.UserService{Store: db, Hasher: hasher}
	u, err := users.CreateUser(ctx, service.NewUser{Email: *email, Name: *name, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "created user %s (%s)\n", u.ID, u.Email)

	if *mfa {
		mfaSvc := &service.MFAService{Store: db, Issuer: cfg.Issuer}
		enrollment, err := mfaSvc.EnrollTOTP(ctx, u.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "totp secret: %s\ntotp url:    %s\n", enrollment.Secret, enrollment.URL)
	}
	return nil
}

func auditVerify(ctx context.Context, cfg app.Config, stdout io.Writer) error {
	db, err := app.OpenStore(ctx, cfg, app.NewLogger(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := audit.NewStoreSink(db).Verify(ctx)
	if err != nil {
		return fmt.Errorf("audit chain broken after %d events: %w", n, err)
	}
	fmt.Fprintf(stdout, "audit chain ok (%d events)\n", n)
	return nil
}
