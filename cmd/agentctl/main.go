// agentctl is a smoke-test client for an OAuth Agent. It drives the same
// operations a browser SPA would, which makes it handy for checking an agent
// deployment without a frontend.
package main

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/wfxronald/token-handler-go/pkg/client"
)

const (
	AgentURLArg    = "agent-url"
	DebugArg       = "debug"
	InsecureTLSArg = "insecure-skip-tls-verify"
	ParamArg       = "param"
)

func main() {
	app := &cli.App{
		Name:  "agentctl",
		Usage: "exercises an OAuth Agent the way a browser SPA would",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    AgentURLArg,
				Usage:   "OAuth Agent base URL",
				Value:   "http://localhost:8080",
				EnvVars: []string{"AGENT_URL"},
			},
			&cli.BoolFlag{
				Name:    DebugArg,
				Usage:   "Enable debug logging",
				Value:   false,
				EnvVars: []string{"AGENTCTL_DEBUG"},
			},
			&cli.BoolFlag{
				Name:  InsecureTLSArg,
				Usage: "If true, server certificates will not be checked for validity",
				Value: false,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Run a full login against the agent",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  ParamArg,
						Usage: "Extra authorization request parameter, key=value. May be repeated",
					},
				},
				Action: cmdLogin,
			},
			{
				Name:   "session",
				Usage:  "Show the current session state",
				Action: cmdSession,
			},
			{
				Name:   "refresh",
				Usage:  "Refresh the access token",
				Action: cmdRefresh,
			},
			{
				Name:   "logout",
				Usage:  "End the session",
				Action: cmdLogout,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context) (*client.Client, error) {
	logger := zap.NewNop()
	if cCtx.Bool(DebugArg) {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}
	options := []client.Option{
		client.WithLogger(logger.Sugar()),
	}
	if cCtx.Bool(InsecureTLSArg) {
		options = append(options, client.WithTLSConfig(&tls.Config{
			InsecureSkipVerify: true, // #nosec G402
		}))
	}
	return client.NewClient(cCtx.String(AgentURLArg), options...)
}

func cmdLogin(cCtx *cli.Context) error {
	c, err := newClient(cCtx)
	if err != nil {
		return err
	}

	extraParams := map[string]string{}
	for _, param := range cCtx.StringSlice(ParamArg) {
		key, value, found := strings.Cut(param, "=")
		if !found {
			return fmt.Errorf("invalid --%s %q, expected key=value", ParamArg, param)
		}
		extraParams[key] = value
	}

	start, err := c.StartLogin(cCtx.Context, extraParams)
	if err != nil {
		return err
	}

	fmt.Println("Please open the following URL in your browser to sign in:")
	fmt.Printf("%s\n", start.AuthorizationURL)
	fmt.Println("Then paste the URL the browser was redirected back to:")

	redirected, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return err
	}
	redirected = strings.TrimSpace(redirected)
	if _, err := url.Parse(redirected); err != nil {
		return err
	}

	session, err := c.OnPageLoad(cCtx.Context, redirected)
	if err != nil {
		return err
	}
	if !session.IsLoggedIn {
		return fmt.Errorf("login did not produce a session")
	}
	fmt.Println("Authentication succeeded.")
	return printJson(session)
}

func cmdSession(cCtx *cli.Context) error {
	c, err := newClient(cCtx)
	if err != nil {
		return err
	}
	session, err := c.Session(cCtx.Context)
	if err != nil {
		return err
	}
	return printJson(session)
}

func cmdRefresh(cCtx *cli.Context) error {
	c, err := newClient(cCtx)
	if err != nil {
		return err
	}
	refresh, err := c.Refresh(cCtx.Context)
	if err != nil {
		return err
	}
	return printJson(refresh)
}

func cmdLogout(cCtx *cli.Context) error {
	c, err := newClient(cCtx)
	if err != nil {
		return err
	}
	logout, err := c.Logout(cCtx.Context)
	if err != nil {
		return err
	}
	if logout.LogoutURL != "" {
		fmt.Println("Open the following URL in your browser to complete single logout:")
		fmt.Printf("%s\n", logout.LogoutURL)
	}
	return printJson(logout)
}

func printJson(body interface{}) error {
	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
