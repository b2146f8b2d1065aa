// ABOUTME: tso-console command implementations
// ABOUTME: Thin adapters from CLI arguments to the session, system, gate, and external services

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/2389/tso-console/internal/external"
	"github.com/2389/tso-console/internal/gate"
	"github.com/2389/tso-console/internal/i18n"
)

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: tso-console login <user> <pass>")
	}
	sess, err := a.session.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Fprint(a.out, "✓ ")
	fmt.Fprintf(a.out, "Logged in as %s", sess.Username)
	if sess.IsAdmin {
		color.New(color.FgYellow).Fprint(a.out, " [admin]")
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: tso-console register <user> <pass>")
	}
	res, err := a.session.Register(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	msg := res.Message
	if msg == "" {
		msg = "Registered"
	}
	color.New(color.FgGreen).Fprint(a.out, "✓ ")
	fmt.Fprintf(a.out, "%s. Log in with: tso-console login %s <pass>\n", msg, args[0])
	return nil
}

func (a *app) cmdLogout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) cmdWhoami(ctx context.Context, args []string) error {
	refresh := len(args) > 0 && args[0] == "--refresh"
	if refresh && a.session.FetchCurrentUser(ctx) == nil {
		a.say(color.FgYellow, "Could not refresh from the backend; showing stored session")
	}

	sess := a.session.Current(ctx)
	if !sess.LoggedIn() {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Username:\t%s\n", sess.Username)
	fmt.Fprintf(w, "Admin:\t%t\n", sess.IsAdmin)
	if !sess.LoginTime.IsZero() {
		fmt.Fprintf(w, "Logged in:\t%s\n", sess.LoginTime.Local().Format(time.RFC1123))
	}
	return w.Flush()
}

func (a *app) cmdStatus(ctx context.Context) error {
	st, err := a.system.Status(ctx)
	if err != nil {
		a.say(color.FgYellow, "Backend unreachable (%v); the console treats the system as not configured", err)
		return nil
	}
	if st.Configured {
		a.say(color.FgGreen, "System is configured")
	} else {
		a.say(color.FgYellow, "System is not configured; run: tso-console setup")
	}
	return nil
}

func (a *app) cmdRequired(ctx context.Context) error {
	keys := a.system.GetRequiredConfigs(ctx)
	if len(keys) == 0 {
		fmt.Fprintln(a.out, "No required configuration keys")
		return nil
	}
	for _, k := range keys {
		fmt.Fprintln(a.out, k)
	}
	return nil
}

func (a *app) cmdSetup(ctx context.Context, args []string) error {
	configs, err := parseAssignments(args)
	if err != nil {
		return err
	}

	missing := missingKeys(a.system.GetRequiredConfigs(ctx), configs)
	if len(missing) > 0 {
		reader := bufio.NewReader(a.in)
		for _, k := range missing {
			configs[k] = prompt(reader, a.out, k)
		}
	}

	res, err := a.system.InitializeSystem(ctx, configs)
	if err != nil {
		return err
	}
	msg := res.Message
	if msg == "" {
		msg = "System initialized"
	}
	color.New(color.FgGreen).Fprint(a.out, "✓ ")
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *app) cmdSetConfig(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: tso-console set-config <key> <value>")
	}
	if !a.session.IsLoggedIn(ctx) {
		return errors.New("not logged in")
	}
	if _, err := a.system.UpdateConfig(ctx, args[0], args[1]); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprint(a.out, "✓ ")
	fmt.Fprintf(a.out, "%s updated\n", args[0])
	return nil
}

func (a *app) cmdNavigate(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: tso-console navigate <path>...")
	}

	gray := color.New(color.FgHiBlack)
	for _, p := range args {
		res, err := a.nav.Navigate(ctx, p)
		var loop *gate.RedirectLoopError
		if errors.As(err, &loop) {
			a.say(color.FgRed, "%s: %v", p, err)
			continue
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(a.out, "%s -> %s", p, res.Path)
		if !res.Found {
			color.New(color.FgYellow).Fprint(a.out, " (no such page)")
		}
		if res.Redirected() {
			gray.Fprintf(a.out, "  via %s", strings.Join(res.Hops, " -> "))
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

func (a *app) cmdRoutes() error {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tPATH\tAUTH\tADMIN")
	fmt.Fprintln(w, "  ----\t----\t----\t-----")
	for _, r := range a.nav.Routes().All() {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", r.Name, r.Path, yesNo(r.RequiresAuth), yesNo(r.RequiresAdmin))
	}
	return w.Flush()
}

func (a *app) cmdLang(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, i18n.Resolve(ctx, a.store, localeFromEnv()))
		return nil
	}

	tag, err := i18n.SetLanguage(ctx, a.store, args[0])
	if errors.Is(err, i18n.ErrUnsupportedLanguage) {
		supported := make([]string, 0, len(i18n.Supported()))
		for _, t := range i18n.Supported() {
			supported = append(supported, t.String())
		}
		return fmt.Errorf("%w (supported: %s)", err, strings.Join(supported, ", "))
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Language set to %s\n", tag)
	return nil
}

func (a *app) cmdExternal(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: tso-console external token|info|check|test|logs|clear-logs|refresh|watch")
	}

	switch args[0] {
	case "token":
		if len(args) != 2 {
			return errors.New("usage: tso-console external token <value>")
		}
		res, err := a.external.SaveToken(ctx, args[1])
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprint(a.out, "✓ ")
		fmt.Fprint(a.out, "Token saved")
		if res.ExpiresAt != nil {
			fmt.Fprintf(a.out, ", expires %s", res.ExpiresAt.Local().Format(time.RFC1123))
		}
		fmt.Fprintln(a.out)

	case "info":
		info := a.external.TokenInfo(ctx)
		if info == nil {
			fmt.Fprintln(a.out, "No token information available")
			return nil
		}
		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Token saved:\t%t\n", info.TokenExists)
		if !info.LastUpdated.IsZero() {
			fmt.Fprintf(w, "Last updated:\t%s\n", info.LastUpdated.Local().Format(time.RFC1123))
		}
		if info.ExpiresAt != nil {
			fmt.Fprintf(w, "Expires:\t%s\n", info.ExpiresAt.Local().Format(time.RFC1123))
		}
		return w.Flush()

	case "check":
		st := a.external.CheckConnection(ctx)
		if st.Connected {
			a.say(color.FgGreen, "Connected")
		} else {
			a.say(color.FgRed, "Not connected: %s", st.Error)
		}

	case "test":
		if _, err := a.external.TestConnection(ctx); err != nil {
			return err
		}
		logs := a.external.ConnectionLogs(ctx)
		if len(logs) > 0 {
			printLog(a.out, logs[0])
		}

	case "logs":
		logs := a.external.ConnectionLogs(ctx)
		if len(logs) == 0 {
			fmt.Fprintln(a.out, "No connection logs")
			return nil
		}
		for _, l := range logs {
			printLog(a.out, l)
		}

	case "clear-logs":
		if err := a.external.ClearConnectionLogs(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Connection logs cleared")

	case "refresh":
		attempted, err := a.external.RefreshIfExpiring(ctx)
		if err != nil {
			return err
		}
		if attempted {
			a.say(color.FgGreen, "Token refreshed")
		} else {
			fmt.Fprintln(a.out, "Token is not close to expiry; nothing to do")
		}

	case "watch":
		fmt.Fprintf(a.out, "Refreshing every %s, Ctrl-C to stop\n", a.cfg.External.RefreshInterval)
		a.external.RunAutoRefresh(ctx, a.cfg.External.RefreshInterval)

	default:
		return fmt.Errorf("unknown external command: %s", args[0])
	}
	return nil
}

// parseAssignments turns key=value arguments into a map
func parseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		out[k] = v
	}
	return out, nil
}

// missingKeys returns required keys with no non-blank value in configs, sorted
func missingKeys(required []string, configs map[string]string) []string {
	var missing []string
	for _, k := range required {
		if strings.TrimSpace(configs[k]) == "" {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

func prompt(reader *bufio.Reader, w io.Writer, key string) string {
	fmt.Fprintf(w, "%s: ", key)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

// localeFromEnv follows POSIX precedence: LC_ALL, then LC_MESSAGES, then LANG
func localeFromEnv() string {
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func printLog(w io.Writer, l external.ConnectionLog) {
	status := l.Status
	switch l.Status {
	case external.LogSuccess:
		status = color.GreenString(l.Status)
	case external.LogError:
		status = color.RedString(l.Status)
	case external.LogInfo:
		status = color.CyanString(l.Status)
	}
	fmt.Fprintf(w, "%s  %-7s  %s\n", color.HiBlackString(l.Timestamp.Local().Format("2006-01-02 15:04:05")), status, l.Message)
}

// say prints one colored line to the app's output
func (a *app) say(attr color.Attribute, format string, args ...any) {
	color.New(attr).Fprintf(a.out, format+"\n", args...)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
