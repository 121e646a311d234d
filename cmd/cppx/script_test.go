// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"cppx": Execute,
	})
}

// TestScripts runs the CLI scripts in testdata/script against the cppx
// command registered in TestMain. Each script gets a private config
// directory so the user's configuration never leaks in.
func TestScripts(t *testing.T) {
	t.Parallel()

	testscript.Run(t, testscript.Params{
		Dir: filepath.Join("testdata", "script"),
		Setup: func(env *testscript.Env) error {
			env.Setenv("HOME", env.WorkDir)
			env.Setenv("XDG_CONFIG_HOME", filepath.Join(env.WorkDir, ".config"))
			env.Setenv("APPDATA", filepath.Join(env.WorkDir, ".config"))
			env.Setenv("NO_COLOR", "1")
			env.Setenv("CPPX_CLIPBOARD", "none")
			env.Setenv("CPPX_CLEAR_SCREEN", "false")
			env.Setenv("CPPX_PAUSE", "false")
			return nil
		},
	})
}
