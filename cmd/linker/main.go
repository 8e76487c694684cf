package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gkemhcs/justeat-linker/internal/app"
	"github.com/Gkemhcs/justeat-linker/internal/config"
	apperrors "github.com/Gkemhcs/justeat-linker/internal/errors"
	"github.com/Gkemhcs/justeat-linker/internal/flow"
	"github.com/Gkemhcs/justeat-linker/internal/utils"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", ".env", "path to the .env configuration file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.New(cfg)
	// Keep stdout for the prompts.
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	figure.NewFigure("Just Eat Linker", "cybermedium", true).Print()
	fmt.Println()

	f := app.Build(ctx, cfg, logger)
	if err := run(ctx, f, newPrompter(os.Stdin, os.Stdout)); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		if errors.Is(err, errDeclined) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "\n%s\n", userMessage(err))
		os.Exit(1)
	}
}

// run walks the user through the flow until it reaches a terminal step.
func run(ctx context.Context, f *flow.Flow, p *prompter) error {
	for {
		switch f.Step() {
		case flow.StepAccountLogin:
			if err := logIn(ctx, f, p); err != nil {
				if err := offerRetry(ctx, p, err); err != nil {
					return err
				}
			}

		case flow.StepLoadHardware:
			if _, err := f.LoadHardware(ctx); err != nil {
				if f.Step().Terminal() {
					continue
				}
				if err := offerRetry(ctx, p, err); err != nil {
					return err
				}
			}

		case flow.StepSelectHardware:
			set, chosen := f.Hardware()
			p.printf("Wii consoles linked to your account:\n")
			for _, wii := range set {
				p.printf("  %s\n", wii)
			}
			answer, err := p.ask("Wii number", chosen)
			if err != nil {
				return err
			}
			if err := f.ChooseHardware(answer); err != nil {
				p.printf("%s\n", userMessage(err))
				continue
			}
			if _, err := f.ConfirmHardware(); err != nil {
				return err
			}

		case flow.StepSelectCountry:
			countries, chosen := f.Countries()
			p.printf("\nJust Eat country:\n")
			for _, c := range countries {
				p.printf("  %s  %s\n", c.Code, c.Name)
			}
			answer, err := p.ask("Country code", chosen)
			if err != nil {
				return err
			}
			if err := f.ChooseCountry(answer); err != nil {
				p.printf("%s\n", userMessage(err))
				continue
			}
			if _, err := f.ConfirmCountry(); err != nil {
				return err
			}

		case flow.StepCredentials:
			username, err := p.ask("\nJust Eat email", "")
			if err != nil {
				return err
			}
			password, err := p.secret("Just Eat password")
			if err != nil {
				return err
			}
			if _, err := f.SubmitCredentials(ctx, username, password); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.printf("%s\n", userMessage(err))
			}

		case flow.StepSecondFactor:
			code, err := p.ask("Enter the code Just Eat sent you", "")
			if err != nil {
				return err
			}
			if _, err := f.SubmitSecondFactor(ctx, code); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.printf("%s\n", userMessage(err))
			}

		case flow.StepLink:
			retry, err := p.confirm("Try linking again?")
			if err != nil {
				return err
			}
			if !retry {
				return apperrors.ErrJustEatLink
			}
			if _, err := f.RetryLink(ctx); err != nil {
				p.printf("%s\n", userMessage(err))
			}

		case flow.StepNoHardware:
			return apperrors.ErrNoHardware

		case flow.StepDone:
			state := f.Session()
			p.printf("\nYour Just Eat account is now linked to Wii %s.\n", state.WiiNumber)
			return nil
		}
	}
}

var errDeclined = errors.New("retry declined")

// logIn runs the WiiLink device login and waits for the user to approve it.
func logIn(ctx context.Context, f *flow.Flow, p *prompter) error {
	challenge, err := f.Begin(ctx)
	if err != nil {
		return err
	}
	p.printf("Log in to your WiiLink account:\n  open %s\n  and enter the code %s\n", challenge.VerificationURI, challenge.UserCode)
	if challenge.VerificationURIComplete != "" {
		p.printf("  or open %s\n", challenge.VerificationURIComplete)
	}
	p.printf("Waiting for you to finish logging in...\n")
	name, err := f.AwaitLogin(ctx)
	if err != nil {
		return err
	}
	if name != "" {
		p.printf("Logged in as %s.\n\n", name)
	}
	return nil
}

// offerRetry reports a failed step and asks whether to run it again. A nil return
// means the step is retried.
func offerRetry(ctx context.Context, p *prompter, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.printf("%s\n", userMessage(err))
	retry, perr := p.confirm("Try again?")
	if perr != nil {
		return perr
	}
	if !retry {
		return errDeclined
	}
	return nil
}

// userMessage returns the message meant for the user, without wrapped causes.
func userMessage(err error) string {
	var le *apperrors.LinkError
	if errors.As(err, &le) {
		return le.Message
	}
	return err.Error()
}
