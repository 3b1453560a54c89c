package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/wfxronald/token-handler-go/pkg/oauthagent"
)

const (
	OidcProviderArg     = "oidc-provider"
	OidcClientIDArg     = "oidc-client-id"
	OidcClientSecretArg = "oidc-client-secret"
	RedirectURLArg      = "redirect-url"
	ScopesArg           = "scopes"
	OriginsArg          = "origins"
	CookieHashKeyArg    = "cookie-hash-key"
	CookieBlockKeyArg   = "cookie-block-key"
	ListenArg           = "listen"
	InsecureCookiesArg  = "insecure-cookies"
	DebugArg            = "debug"
)

func main() {
	app := &cli.App{
		Name:  "oauth-agent",
		Usage: "runs the reference OAuth Agent for browser SPAs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    OidcProviderArg,
				Usage:   "OIDC Provider URL",
				Value:   "https://accounts.google.com",
				EnvVars: []string{"OIDC_PROVIDER"},
			},
			&cli.StringFlag{
				Name:    OidcClientIDArg,
				Usage:   "OIDC Client ID",
				EnvVars: []string{"OIDC_CLIENT_ID"},
			},
			&cli.StringFlag{
				Name:    OidcClientSecretArg,
				Usage:   "OIDC Client Secret",
				EnvVars: []string{"OIDC_CLIENT_SECRET"},
			},
			&cli.StringFlag{
				Name:    RedirectURLArg,
				Usage:   "Redirect URL. This is the URL of the SPA.",
				Value:   "https://example.com",
				EnvVars: []string{"REDIRECT_URL"},
			},
			&cli.StringSliceFlag{
				Name:    ScopesArg,
				Usage:   "Additional OAUTH2 scopes",
				Value:   &cli.StringSlice{},
				EnvVars: []string{"SCOPES"},
			},
			&cli.StringSliceFlag{
				Name:    OriginsArg,
				Usage:   "Trusted Origins. At least 1 MUST be provided",
				Value:   &cli.StringSlice{},
				EnvVars: []string{"ORIGINS"},
			},
			&cli.StringFlag{
				Name:    CookieHashKeyArg,
				Usage:   "Key used to sign the session cookies, 32 or 64 bytes",
				EnvVars: []string{"COOKIE_HASH_KEY"},
			},
			&cli.StringFlag{
				Name:    CookieBlockKeyArg,
				Usage:   "Key used to encrypt the session cookies, 16, 24 or 32 bytes",
				EnvVars: []string{"COOKIE_BLOCK_KEY"},
			},
			&cli.StringFlag{
				Name:    ListenArg,
				Usage:   "Address to listen on",
				Value:   ":8080",
				EnvVars: []string{"LISTEN_ADDRESS"},
			},
			&cli.BoolFlag{
				Name:    InsecureCookiesArg,
				Usage:   "Issue cookies without the Secure attribute, for local development over http",
				Value:   false,
				EnvVars: []string{"INSECURE_COOKIES"},
			},
			&cli.BoolFlag{
				Name:    DebugArg,
				Usage:   "Enable debug logging",
				Value:   false,
				EnvVars: []string{"OAUTH_AGENT_DEBUG"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	var logger *zap.Logger
	var err error
	if cCtx.Bool(DebugArg) {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}

	hashKey := cCtx.String(CookieHashKeyArg)
	if len(hashKey) < 32 {
		return fmt.Errorf("%s must be at least 32 bytes", CookieHashKeyArg)
	}
	var blockKey []byte
	if v := cCtx.String(CookieBlockKeyArg); v != "" {
		blockKey = []byte(v)
	}

	agent, err := oauthagent.NewOauthAgent(cCtx.Context,
		logger,
		cCtx.String(OidcProviderArg),
		cCtx.String(OidcClientIDArg),
		cCtx.String(OidcClientSecretArg),
		cCtx.String(RedirectURLArg),
		cCtx.StringSlice(ScopesArg),
		cCtx.StringSlice(OriginsArg),
		[]byte(hashKey),
		blockKey,
		cCtx.Bool(InsecureCookiesArg),
	)
	if err != nil {
		return err
	}

	listen := cCtx.String(ListenArg)
	logger.Sugar().Infow("oauth agent listening", "address", listen)
	return http.ListenAndServe(listen, oauthagent.NewRouter(agent))
}
