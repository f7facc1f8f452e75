package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/facto/facto/internal/console"
	"github.com/facto/facto/internal/domain/invoice"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/reconcile"
	"github.com/facto/facto/internal/types"
)

type command func(ctx context.Context, d deps, args []string) error

var commands = map[string]command{
	"signup":   signUp,
	"signin":   signIn,
	"signout":  signOut,
	"status":   status,
	"plans":    plans,
	"download": download,
	"return":   returnFromCheckout,
	"totals":   totals,
}

func credentials(name string, args []string) (string, string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	return *email, *password, nil
}

func signUp(ctx context.Context, d deps, args []string) error {
	email, password, err := credentials("signup", args)
	if err != nil {
		return err
	}
	if err := d.waitForIdentity(ctx); err != nil {
		return err
	}
	user, err := d.Identity.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	d.Notifier.Success("Account created for " + user.Email)
	return nil
}

func signIn(ctx context.Context, d deps, args []string) error {
	email, password, err := credentials("signin", args)
	if err != nil {
		return err
	}
	if err := d.waitForIdentity(ctx); err != nil {
		return err
	}
	user, err := d.Identity.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	d.Notifier.Success("Signed in as " + user.Email)
	return nil
}

func signOut(ctx context.Context, d deps, _ []string) error {
	if err := d.waitForIdentity(ctx); err != nil {
		return err
	}
	if err := d.Identity.SignOut(ctx); err != nil {
		return err
	}
	d.Notifier.Info("Signed out")
	return nil
}

func status(ctx context.Context, d deps, _ []string) error {
	if err := d.waitForIdentity(ctx); err != nil {
		return err
	}
	user := d.Identity.CurrentUser()
	if user == nil {
		fmt.Fprintln(stdout, "Not signed in")
	} else {
		fmt.Fprintf(stdout, "Signed in as %s (%s)\n", user.Email, user.UID)
	}

	if d.Entitlements.IsEntitled(ctx, user) {
		fmt.Fprintln(stdout, "Subscription active")
	} else {
		fmt.Fprintln(stdout, "Premium required to download")
	}
	if d.Pending.DownloadRequested(ctx) {
		fmt.Fprintln(stdout, "A download is waiting for checkout to complete")
	}
	return nil
}

func plans(_ context.Context, _ deps, _ []string) error {
	for _, p := range types.Plans {
		fmt.Fprintf(stdout, "%-8s %s\n", p, p.Label())
	}
	return nil
}

func download(ctx context.Context, d deps, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	draftPath := fs.String("draft", "", "path to a JSON invoice draft")
	templateName := fs.String("template", string(types.DefaultTemplate), "invoice template")
	planName := fs.String("plan", string(types.DefaultPlan), "plan to subscribe to when needed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	template, err := types.ParseTemplate(*templateName)
	if err != nil {
		return err
	}
	plan, err := types.ParsePlan(*planName)
	if err != nil {
		return err
	}
	draft, err := readDraft(*draftPath)
	if err != nil {
		return err
	}

	if err := d.waitForIdentity(ctx); err != nil {
		return err
	}
	location, err := console.NewLocation(d.Config.Client.RedirectBase())
	if err != nil {
		return err
	}
	ctrl := d.controller(location, console.NewWorkspace(template, draft))
	ctrl.Start(ctx)
	defer ctrl.Stop()

	result, err := ctrl.RequestDownload(ctx)
	if err != nil {
		return err
	}
	switch result {
	case reconcile.DownloadExported, reconcile.DownloadSignInRequired:
		return nil
	case reconcile.DownloadPlanRequired:
		fmt.Fprintf(stdout, "Subscribing to the %s\n", plan.Label())
		return ctrl.ChoosePlan(ctx, plan)
	}
	return nil
}

func returnFromCheckout(ctx context.Context, d deps, args []string) error {
	fs := flag.NewFlagSet("return", flag.ContinueOnError)
	address := fs.String("url", "", "address the checkout page returned to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *address == "" {
		return ierr.NewError("missing return address").
			WithHint("Pass the address checkout sent you back to with -url").
			Mark(ierr.ErrValidation)
	}

	location, err := console.NewLocation(*address)
	if err != nil {
		return err
	}
	workspace := console.NewWorkspace(types.DefaultTemplate, invoice.NewDraft(time.Now()))
	ctrl := d.controller(location, workspace)
	ctrl.Start(ctx)
	defer ctrl.Stop()

	if err := d.waitForIdentity(ctx); err != nil {
		return err
	}

	d.Logger.Debugw("checkout return handled", "state", ctrl.State(), "location", location.String())
	return ctrl.Denial()
}

func totals(_ context.Context, _ deps, args []string) error {
	fs := flag.NewFlagSet("totals", flag.ContinueOnError)
	draftPath := fs.String("draft", "", "path to a JSON invoice draft")
	if err := fs.Parse(args); err != nil {
		return err
	}
	draft, err := readDraft(*draftPath)
	if err != nil {
		return err
	}

	for _, li := range draft.Items {
		fmt.Fprintf(stdout, "%-30s %6s x %10s  VAT %5s%%  %10s\n",
			li.Description, li.Quantity, invoice.FormatAmount(li.UnitPrice), li.VATRate, invoice.FormatAmount(li.Total()))
	}
	fmt.Fprintf(stdout, "Subtotal %s\nVAT      %s\nTotal    %s\n",
		invoice.FormatAmount(draft.Subtotal()),
		invoice.FormatAmount(draft.VATTotal()),
		invoice.FormatAmount(draft.Total()))
	return nil
}

// readDraft loads a draft from path, or starts a new one when path is empty
func readDraft(path string) (*invoice.Draft, error) {
	if path == "" {
		return invoice.NewDraft(time.Now()), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Could not read draft %s", path).
			Mark(ierr.ErrValidation)
	}
	draft, err := invoice.Unmarshal(string(raw))
	if err != nil {
		return nil, err
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return draft, nil
}
