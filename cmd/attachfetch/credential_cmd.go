package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	flag "github.com/spf13/pflag"

	"github.com/emx-mail/attachfetch/pkgs/config"
	"github.com/emx-mail/attachfetch/pkgs/credential"
)

type rememberFlags struct {
	password string
}

func parseRememberFlags(args []string) rememberFlags {
	fs := flag.NewFlagSet("remember", flag.ExitOnError)
	var f rememberFlags
	fs.StringVar(&f.password, "password", "", "Password to store (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		fatal("remember: %v", err)
	}
	return f
}

func handleRemember(cfg *config.Config, opts rememberFlags) error {
	password := opts.password
	if password == "" {
		var err error
		password, err = pterm.DefaultInteractiveTextInput.
			WithMask("*").
			Show(fmt.Sprintf("Password for %s", cfg.Account.Email))
		if err != nil {
			return errors.Wrap(err, "read password")
		}
	}
	if password == "" {
		return errors.New("empty password")
	}

	store, err := credential.Open()
	if err != nil {
		return err
	}
	if err := store.SetPassword(cfg.Account.Email, password); err != nil {
		return err
	}
	pterm.Success.Printf("Password for %s stored in the system keyring\n", cfg.Account.Email)
	return nil
}

func handleForget(cfg *config.Config) error {
	store, err := credential.Open()
	if err != nil {
		return err
	}
	if err := store.DeletePassword(cfg.Account.Email); err != nil {
		return err
	}
	pterm.Success.Printf("Password for %s removed\n", cfg.Account.Email)
	return nil
}
