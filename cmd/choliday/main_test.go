package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

const holidaysICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//choliday//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:spring@test\r\n" +
	"SUMMARY:Spring Festival holiday\r\n" +
	"DTSTART;VALUE=DATE:20250129\r\n" +
	"DTEND;VALUE=DATE:20250201\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:makeup@test\r\n" +
	"SUMMARY:Makeup work day\r\n" +
	"DTSTART;VALUE=DATE:20250126\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func setup(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	ics := writeFile(t, dir, "holidays.ics", holidaysICS)
	return writeFile(t, dir, "choliday.toml", fmt.Sprintf(`
[base]
timezone = "Asia/Shanghai"

[calendar]
source = [%q]

[predict]
work = ["work"]
rest = ["holiday"]
priority = "WorkOverRest"
%s`, ics, extra))
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExecute_Verdicts(t *testing.T) {
	cfgPath := setup(t, "")

	tests := []struct {
		name     string
		date     string
		wantOut  string
		wantCode int
	}{
		{"Holiday on a weekday", "20250130", "false\n", 1},
		{"Makeup work on a Sunday", "20250126", "true\n", 0},
		{"Plain Tuesday", "20250107", "true\n", 0},
		{"Plain Saturday", "20250111", "false\n", 1},
		{"Date-time inside holiday", "20250129083000", "false\n", 1},
		{"Epoch milliseconds", "1736928000000", "true\n", 0}, // 2025-01-15 16:00 Shanghai, Wednesday
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := run(t, "-c", cfgPath, "-d", tt.date)

			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr)
			}
			if stdout != tt.wantOut {
				t.Errorf("stdout = %q, want %q", stdout, tt.wantOut)
			}
		})
	}
}

func TestExecute_WeeklyPattern(t *testing.T) {
	cfgPath := setup(t, "")
	weekly := strings.Replace(mustRead(t, cfgPath), "[base]", "[base]\nworkday = \"1-6\"", 1)
	if err := os.WriteFile(cfgPath, []byte(weekly), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	code, stdout, _ := run(t, "-c", cfgPath, "-d", "20250111")
	if code != 0 || stdout != "true\n" {
		t.Errorf("Saturday with pattern 1-6: code = %d, stdout = %q, want 0, true", code, stdout)
	}
}

func TestExecute_Errors(t *testing.T) {
	cfgPath := setup(t, "")
	badPriority := writeFile(t, t.TempDir(), "bad.toml", "[predict]\npriority = \"Sometimes\"\n")

	tests := []struct {
		name string
		args []string
	}{
		{"Missing config file", []string{"-c", filepath.Join(t.TempDir(), "absent.toml")}},
		{"Invalid priority", []string{"-c", badPriority}},
		{"Invalid date", []string{"-c", cfgPath, "-d", "20251399"}},
		{"Garbage date", []string{"-c", cfgPath, "-d", "next-monday"}},
		{"Unknown timezone flag", []string{"-c", cfgPath, "--timezone", "Mars/Olympus"}},
		{"Unknown log level", []string{"-c", cfgPath, "--log-level", "chatty"}},
		{"Unexpected argument", []string{"-c", cfgPath, "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := run(t, tt.args...)

			if code != exitError {
				t.Errorf("exit code = %d, want %d", code, exitError)
			}
			if stdout != "" {
				t.Errorf("stdout = %q, want empty", stdout)
			}
			if !strings.Contains(stderr, "Error:") {
				t.Errorf("stderr = %q, want an error message", stderr)
			}
		})
	}
}

func TestExecute_StrictSourceFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "choliday.toml", fmt.Sprintf(`
[calendar]
source = [%q]
[predict]
priority = "WorkOverRest"
`, server.URL+"/cal.ics"))

	code, stdout, _ := run(t, "-c", cfgPath, "-d", "20250107")
	if code != 0 || stdout != "true\n" {
		t.Errorf("lenient: code = %d, stdout = %q, want 0, true", code, stdout)
	}

	code, _, stderr := run(t, "-c", cfgPath, "-d", "20250107", "--strict")
	if code != exitError {
		t.Errorf("strict: code = %d, want %d (stderr: %s)", code, exitError, stderr)
	}
}

func TestExecute_Explain(t *testing.T) {
	cfgPath := setup(t, "")

	code, stdout, stderr := run(t, "explain", "-c", cfgPath, "-d", "20250130")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1 (stderr: %s)", code, stderr)
	}

	var out struct {
		Verdict string `yaml:"verdict"`
		Tier    string `yaml:"tier"`
		Weekday int    `yaml:"weekday"`
		Matches []struct {
			Class string `yaml:"class"`
			Event struct {
				UID string `yaml:"uid"`
			} `yaml:"event"`
		} `yaml:"matches"`
		Sources []struct {
			Events int `yaml:"events"`
		} `yaml:"sources"`
	}
	if err := yaml.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("explain output is not YAML: %v\n%s", err, stdout)
	}

	if out.Verdict != "restday" || out.Tier != "event" || out.Weekday != 4 {
		t.Errorf("verdict, tier, weekday = %q, %q, %d, want restday, event, 4", out.Verdict, out.Tier, out.Weekday)
	}
	if len(out.Matches) != 1 || out.Matches[0].Event.UID != "spring@test" || out.Matches[0].Class != "rest" {
		t.Errorf("matches = %+v, want spring@test classified rest", out.Matches)
	}
	if len(out.Sources) != 1 || out.Sources[0].Events != 2 {
		t.Errorf("sources = %+v, want one source with 2 events", out.Sources)
	}
}

func TestExecute_MetricsTextfile(t *testing.T) {
	promPath := filepath.Join(t.TempDir(), "choliday.prom")
	cfgPath := setup(t, fmt.Sprintf("\n[metrics]\ntextfile = %q\n", promPath))

	if code, _, stderr := run(t, "-c", cfgPath, "-d", "20250130"); code != 1 {
		t.Fatalf("exit code = %d, want 1 (stderr: %s)", code, stderr)
	}

	data := mustRead(t, promPath)
	for _, want := range []string{"choliday_workday 0", `choliday_decision_tier{tier="event"} 1`} {
		if !strings.Contains(data, want) {
			t.Errorf("metrics missing %q:\n%s", want, data)
		}
	}
}

func TestExecute_LogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "choliday.log")
	cfgPath := setup(t, fmt.Sprintf("\n[log]\nlevel = \"info\"\nfile = %q\n", logPath))

	code, _, stderr := run(t, "-c", cfgPath, "-d", "20250130")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1 (stderr: %s)", code, stderr)
	}
	if stderr != "" {
		t.Errorf("stderr = %q, want logs in file only", stderr)
	}
	if !strings.Contains(mustRead(t, logPath), "Decision made") {
		t.Error("log file does not contain the decision entry")
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	return string(data)
}
