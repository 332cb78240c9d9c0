package banner

import (
	"fmt"
	"strings"

	"campusboard/pkg/config"
)

const banner = `
 ██████╗ █████╗ ███╗   ███╗██████╗ ██╗   ██╗███████╗██████╗  ██████╗  █████╗ ██████╗ ██████╗
██╔════╝██╔══██╗████╗ ████║██╔══██╗██║   ██║██╔════╝██╔══██╗██╔═══██╗██╔══██╗██╔══██╗██╔══██╗
██║     ███████║██╔████╔██║██████╔╝██║   ██║███████╗██████╔╝██║   ██║███████║██████╔╝██║  ██║
██║     ██╔══██║██║╚██╔╝██║██╔═══╝ ██║   ██║╚════██║██╔══██╗██║   ██║██╔══██║██╔══██╗██║  ██║
╚██████╗██║  ██║██║ ╚═╝ ██║██║     ╚██████╔╝███████║██████╔╝╚██████╔╝██║  ██║██║  ██║██████╔╝
 ╚═════╝╚═╝  ╚═╝╚═╝     ╚═╝╚═╝      ╚═════╝ ╚══════╝╚═════╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚═════╝
`

// PrintWithEff prints the startup banner plus the effective configuration
// summary and production-readiness checks.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Storage.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config: %s\n", src)

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/posts                      - Create a post or reply")
	fmt.Println("GET  /v1/feed/{topic}?limit=&offset= - List a topic's feed")
	fmt.Println("POST /v1/posts/{id}/react           - Toggle a reaction")
	fmt.Println("POST /v1/posts/{id}/report          - Report a post")
	fmt.Println("GET  /v1/topics                     - List topics")

	fmt.Println("\n== Examples ===================================================")
	fmt.Println("curl -H 'Authorization: Bearer <token>' -X POST 'http://<host>:<port>/v1/posts' -d '{\"topic\":\"General\",\"body\":\"hello\"}'")
	fmt.Println("curl 'http://<host>:<port>/v1/feed/General?limit=20'")

	fmt.Println("\n== Production? =================================================")
	if eff.Config != nil && len(eff.Config.Security.SigningKeys) > 0 {
		fmt.Printf("- Signing keys: OK (%d)\n", len(eff.Config.Security.SigningKeys))
	} else {
		fmt.Println("- Signing keys: MISSING (required to verify bearer tokens)")
	}

	tlsOK := eff.Config != nil &&
		strings.TrimSpace(eff.Config.Server.TLS.CertFile) != "" &&
		strings.TrimSpace(eff.Config.Server.TLS.KeyFile) != ""
	if tlsOK {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}

	if dbPath != "" {
		fmt.Printf("- DB Path: %s\n", dbPath)
	} else {
		fmt.Println("- DB Path: not set (use --db or CAMPUSBOARD_DB_PATH)")
	}

	if eff.Config != nil && eff.Config.Retention.Enabled {
		if eff.Config.Retention.Cron != "" {
			fmt.Printf("- Retention: enabled (cron=%s)\n", eff.Config.Retention.Cron)
		} else {
			fmt.Println("- Retention: enabled")
		}
	} else {
		fmt.Println("- Retention: disabled")
	}

	fmt.Println("\n== Logs: =================================================")
}
