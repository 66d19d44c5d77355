// pkg/provision/summary.go

package provision

import (
	"fmt"
	"strings"
)

// CheatSheet renders the operator quick reference printed at the end of an
// install. Pure so the tests can pin its content.
func CheatSheet(cfg *Config) string {
	var b strings.Builder

	b.WriteString("weather-data collector is provisioned\n\n")
	fmt.Fprintf(&b, "  service unit  %s (%s)\n", cfg.ServiceUnitName(), cfg.ServiceUnitPath)
	fmt.Fprintf(&b, "  timer unit    %s (%s)\n", cfg.TimerUnitName(), cfg.TimerUnitPath)
	fmt.Fprintf(&b, "  cadence       %s (OnCalendar=%s)\n", cfg.CadenceHuman(), cfg.OnCalendar())
	fmt.Fprintf(&b, "  service user  %s\n", cfg.ServiceUser)
	fmt.Fprintf(&b, "  project dir   %s\n", cfg.ProjectDir)
	fmt.Fprintf(&b, "  virtualenv    %s\n", cfg.VenvDir)
	fmt.Fprintf(&b, "  app log       %s\n", cfg.AppLogPath())
	b.WriteString("\nuseful commands:\n")
	fmt.Fprintf(&b, "  journalctl -u %s -f    follow collector output\n", cfg.ServiceUnitName())
	fmt.Fprintf(&b, "  systemctl list-timers %s    inspect the schedule\n", cfg.TimerUnitName())
	fmt.Fprintf(&b, "  systemctl status %s    service health\n", cfg.ServiceUnitName())
	fmt.Fprintf(&b, "  tail -f %s    application log\n", cfg.AppLogPath())
	b.WriteString("  weatherctl status    re-run these checks\n")
	b.WriteString("  weatherctl run    one foreground collection\n")
	fmt.Fprintf(&b, "  weatherctl install --profile %s    reconverge this host\n", cfg.Profile)

	return b.String()
}
