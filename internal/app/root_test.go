package app

import (
	"testing"
)

func TestRootCommand(t *testing.T) {
	if RootCmd.Use != "freezer" {
		t.Errorf("expected Use to be 'freezer', got '%s'", RootCmd.Use)
	}

	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	expectedCommands := []string{"status", "list", "freeze", "restore", "compare", "state", "history", "watch", "doctor"}
	foundCommands := make(map[string]bool)

	for _, cmd := range RootCmd.Commands() {
		foundCommands[cmd.Name()] = true
	}

	for _, expected := range expectedCommands {
		if !foundCommands[expected] {
			t.Errorf("expected command '%s' to be registered", expected)
		}
	}
}

func TestRootCommandHasPersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "cachedir", "backend", "db", "log-level", "log-json", "ignore", "output"} {
		flag := RootCmd.PersistentFlags().Lookup(name)
		if flag == nil {
			t.Errorf("expected --%s flag to be registered", name)
			continue
		}
		if flag.Usage == "" {
			t.Errorf("expected --%s flag to have usage text", name)
		}
	}
}

func TestConfigFileIsRead(t *testing.T) {
	c := newCLI(t)

	// The file sets an ignore pattern; flags set in run() still win for the rest
	cfgPath := writeFile(t, c.dir, "config.yaml", "ignore:\n  - curl\n")

	out := c.mustRun("--config", cfgPath, "freeze")
	if out != "Frozen freezer: 1 packages, 1 repositories\n" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	c := newCLI(t)

	if _, err := c.run("list", "-o", "xml"); err == nil {
		t.Error("expected error for unknown output format")
	}

	c.mustRun("freeze")
	delete(c.fake.Packages, "git")

	// The format is rejected before the restore runs
	if _, err := c.run("restore", "--clean", "-o", "jsn"); err == nil {
		t.Fatal("expected error for unknown output format")
	}
	if len(c.fake.Calls) != 0 {
		t.Errorf("expected no package manager changes, got %v", c.fake.Calls)
	}
	if out := c.mustRun("status"); out != "freezer: frozen\n" {
		t.Errorf("expected frozen state to be kept, got %q", out)
	}
}
