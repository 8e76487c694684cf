package main

import (
	"fmt"
	"os"

	"github.com/Gkemhcs/justeat-linker/internal/config"
	"github.com/Gkemhcs/justeat-linker/internal/fakeserver"
	"github.com/Gkemhcs/justeat-linker/internal/utils"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/pflag"
)

func main() {
	opts := fakeserver.DefaultOptions()

	configPath := pflag.StringP("config", "c", ".env", "path to the .env configuration file")
	pflag.BoolVar(&opts.SecondFactor, "2fa", false, "require a Just Eat one-time code")
	pflag.StringVar(&opts.OTP, "otp", opts.OTP, "the one-time code Just Eat accepts")
	pflag.IntVar(&opts.FailLinks, "fail-links", 0, "number of /link calls to reject before succeeding")
	pflag.IntVar(&opts.PendingPolls, "pending-polls", opts.PendingPolls, "authorization_pending answers before a device code is approved")
	pflag.StringSliceVar(&opts.Wiis, "wii", opts.Wiis, "Wii numbers linked to the account (repeatable)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := utils.New(cfg)
	opts.ClientID = cfg.SSOClientID

	figure.NewFigure("WiiLink dev services", "cybermedium", true).Print()
	fmt.Println()

	base := "http://localhost:" + cfg.DevServicesPort
	fmt.Printf("Point the linker at these services with:\n\n")
	fmt.Printf("  OIDC_ISSUER=%s%s\n", base, fakeserver.IssuerPath)
	fmt.Printf("  SSO_DEVICE_URL=%s%s\n", base, fakeserver.DevicePath)
	fmt.Printf("  SSO_TOKEN_URL=%s%s\n", base, fakeserver.TokenPath)
	fmt.Printf("  ACCOUNTS_URL=%s\n", base)
	fmt.Printf("  LINK_SERVER_URL=%s\n\n", base)
	fmt.Printf("Just Eat login: %s / %s\n\n", opts.JustEatUsername, opts.JustEatPassword)

	s := fakeserver.New(opts, logger)
	if err := s.Start(":" + cfg.DevServicesPort); err != nil {
		logger.Fatalf("dev services failed to start: %v", err)
	}
}
