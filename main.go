package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/authgate/authgate/pkg/apis/options"
	gatehttp "github.com/authgate/authgate/pkg/http"
	"github.com/authgate/authgate/pkg/ip"
	"github.com/authgate/authgate/pkg/logger"
	"github.com/authgate/authgate/pkg/middleware"
	"github.com/authgate/authgate/pkg/providers/oidc"
	"github.com/authgate/authgate/pkg/validation"
)

// VERSION is the gateway release version.
const VERSION = "1.0.0"

func main() {
	flagSet := pflag.NewFlagSet("authgate", pflag.ExitOnError)
	configPath := flagSet.String("config", "", "path to the YAML config file (falls back to AUTHGATE_CONFIG)")
	showVersion := flagSet.Bool("version", false, "print version string and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		logger.Fatalf("ERROR: unable to parse flags: %v", err)
	}

	if *showVersion {
		fmt.Printf("authgate %s\n", VERSION)
		return
	}

	if *configPath == "" {
		*configPath = os.Getenv("AUTHGATE_CONFIG")
	}
	if *configPath == "" {
		logger.Fatal("no config file given, set --config or AUTHGATE_CONFIG")
	}

	opts, err := options.Load(*configPath)
	if err != nil {
		logger.Fatalf("ERROR: %v", err)
	}
	if err := validation.Validate(opts); err != nil {
		logger.Fatalf("ERROR: %v", err)
	}

	configureLogging(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := oidc.NewProviderClient(ctx, providerConfig(opts))
	if err != nil {
		logger.Fatalf("ERROR: %v", err)
	}
	go provider.WatchDiscovery(ctx, opts.DiscoveryInterval())

	gateway, err := NewGateway(opts, provider)
	if err != nil {
		logger.Fatalf("ERROR: %v", err)
	}

	appServer, err := gatehttp.NewServer(gatehttp.Opts{
		Handler:     gateway,
		BindAddress: opts.Bind,
	})
	if err != nil {
		logger.Fatalf("ERROR: %v", err)
	}
	servers := []gatehttp.Server{appServer}

	if opts.MetricsBind != "" {
		metricsServer, err := gatehttp.NewServer(gatehttp.Opts{
			Handler:     middleware.DefaultMetricsHandler,
			BindAddress: opts.MetricsBind,
		})
		if err != nil {
			logger.Fatalf("ERROR: %v", err)
		}
		servers = append(servers, metricsServer)
	}

	logger.Printf("authgate %s listening on %s", VERSION, opts.Bind)
	if err := gatehttp.NewServerGroup(servers...).Start(ctx); err != nil {
		logger.Fatalf("ERROR: %v", err)
	}
}

func configureLogging(opts *options.Options) {
	if opts.Logging.Silent {
		logger.SetStandardEnabled(false)
	}
	if opts.Logging.AuthEnabled != nil {
		logger.SetAuthEnabled(*opts.Logging.AuthEnabled)
	}
	logger.SetGetClientFunc(ip.NewParser(opts.RealIPHeader).GetClientString)
}

func providerConfig(opts *options.Options) oidc.Config {
	return oidc.Config{
		Issuer:           opts.Issuer,
		ClientID:         opts.ClientID,
		ClientSecret:     opts.ClientSecret,
		Scopes:           strings.Fields(opts.Scopes),
		RedirectURL:      opts.GetPublicURL().JoinPath("callback").String(),
		Timeout:          opts.ProviderTimeout(),
		SessionLifetime:  opts.SessionLifetime(),
		HonorTokenExpiry: opts.HonorTokenExpiry,
		RefreshTokens:    opts.RefreshTokens,
		RolesClaim:       opts.RolesClaim,
		HeaderClaims:     claimPaths(opts.HeaderClaims),
	}
}

// claimPaths collects the distinct claim paths referenced by the header
// projection config.
func claimPaths(headerClaims map[string]string) []string {
	seen := make(map[string]struct{}, len(headerClaims))
	for _, path := range headerClaims {
		seen[path] = struct{}{}
	}

	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
