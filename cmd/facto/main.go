package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/facto/facto/internal/config"
	ierr "github.com/facto/facto/internal/errors"
)

var stdout io.Writer = os.Stdout

const usage = `Usage: facto [-config path] [-tab id] <command> [flags]

Commands:
  signup   -email -password    create an account and sign in
  signin   -email -password    sign in
  signout                      sign out
  status                       show the signed-in user and subscription
  plans                        list subscription plans
  download -draft -template    export an invoice, subscribing first if needed
           [-plan]
  return   -url                resume after the checkout page sent you back
  totals   -draft              print the totals of a draft
`

func init() {
	time.Local = time.UTC
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, ierr.DisplayMessage(err, err.Error()))
		os.Exit(1)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("facto", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	configPath := global.String("config", "", "path to a config file")
	tabID := global.String("tab", "", "tab id scoping pending checkout state")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return flag.ErrHelp
	}

	command, ok := commands[global.Arg(0)]
	if !ok {
		global.Usage()
		return ierr.NewError("unknown command").
			WithHintf("Unknown command %q", global.Arg(0)).
			Mark(ierr.ErrValidation)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *tabID != "" {
		cfg.Storage.TabID = *tabID
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var d deps
	app := newApp(cfg, &d)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return command(ctx, d, global.Args()[1:])
}

func loadConfig(path string) (*config.Configuration, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.NewConfig()
}
