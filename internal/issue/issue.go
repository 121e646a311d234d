// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	FileNotFoundId Id = iota + 1
	CompilerNotFoundId
	CompilationFailedId
	ClipboardUnavailableId
	ShellNotFoundId
	RuntimeNotAvailableId
	ConfigLoadFailedId
	WatchFailedId
)

// ErrUnknownIssue is returned by Parse for names that match no guide.
var ErrUnknownIssue = errors.New("unknown issue")

type (
	// Id identifies a troubleshooting guide.
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is a troubleshooting guide written in Markdown.
	Issue struct {
		id       Id
		name     string
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

var (
	render = glamour.Render

	fileNotFoundIssue = &Issue{
		id:   FileNotFoundId,
		name: "file-not-found",
		mdMsg: `
# Source file not found!

cppx could not read the file it was asked to process.

## Things you can try:
- Check the path for typos; relative paths are resolved from the current directory
- Save the file in your editor before running cppx
- Pass an absolute path:
~~~
$ cppx run "$PWD/main.cpp"
~~~`,
	}

	compilerNotFoundIssue = &Issue{
		id:   CompilerNotFoundId,
		name: "compiler-not-found",
		mdMsg: `
# C++ compiler not found!

The build script could not start the configured compiler.

## Things you can try:
- Install g++ (` + "`sudo apt install g++`" + `, ` + "`brew install gcc`" + `)
- Point cppx at another compiler in ~/.config/cppx/config.cue:
~~~cue
compiler: {
	command: "clang++"
}
~~~
- Or override it for one run:
~~~
$ CPPX_COMPILER_COMMAND=clang++ cppx run main.cpp
~~~`,
		extLinks: []HttpLink{"https://gcc.gnu.org/install/"},
	}

	compilationFailedIssue = &Issue{
		id:   CompilationFailedId,
		name: "compilation-failed",
		mdMsg: `
# Compilation failed, nothing was copied!

cppx only copies code that compiles. The compiler output above shows what
went wrong.

## Things you can try:
- Fix the first reported error and run again
- Headers included with quotes are searched next to the including file and
  then in the workspace root; pass ` + "`--root`" + ` when your library lives elsewhere
- Inspect the inlined output without compiling:
~~~
$ cppx expand main.cpp --root ~/library
~~~`,
	}

	clipboardUnavailableIssue = &Issue{
		id:   ClipboardUnavailableId,
		name: "clipboard-unavailable",
		mdMsg: `
# Clipboard not available!

No clipboard helper was found and the terminal escape fallback was disabled.

## Things you can try:
- Install a clipboard helper: ` + "`wl-clipboard`" + ` on Wayland, ` + "`xclip`" + ` or ` + "`xsel`" + ` on X11
- Over SSH or inside tmux, use the terminal escape sequence:
~~~cue
clipboard: "osc52"
~~~
- Print the expanded source instead:
~~~
$ cppx expand main.cpp > submit.cpp
~~~`,
		extLinks: []HttpLink{"https://github.com/bugaevc/wl-clipboard"},
	}

	shellNotFoundIssue = &Issue{
		id:   ShellNotFoundId,
		name: "shell-not-found",
		mdMsg: `
# Shell not found!

The native runtime needs a POSIX shell to run the build script.

## Things you can try:
- Install bash or sh and make sure it is on your PATH
- Use the built-in interpreter instead:
~~~cue
runtime: "virtual"
~~~`,
	}

	runtimeNotAvailableIssue = &Issue{
		id:   RuntimeNotAvailableId,
		name: "runtime-not-available",
		mdMsg: `
# Runtime not available!

## Available runtimes:
- **native**: runs the build script with your shell, optionally on a pseudo-terminal (` + "`--tty`" + `)
- **virtual**: runs the build script with the built-in mvdan/sh interpreter

## Things you can try:
~~~
$ cppx run --runtime virtual main.cpp
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id:   ConfigLoadFailedId,
		name: "config-load-failed",
		mdMsg: `
# Failed to load configuration!

## Things you can try:
- Show where cppx looks for its configuration:
~~~
$ cppx config path
~~~
- Regenerate a default file:
~~~
$ cppx config init --force
~~~
- Check the CUE syntax with the cue tool: ` + "`cue vet config.cue`",
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	watchFailedIssue = &Issue{
		id:   WatchFailedId,
		name: "watch-failed",
		mdMsg: `
# Failed to watch files!

## Things you can try:
- Raise the inotify limit on Linux:
~~~
$ sudo sysctl fs.inotify.max_user_watches=524288
~~~
- Narrow ` + "`watch.patterns`" + ` or add entries to ` + "`watch.ignore`",
	}

	issues = map[Id]*Issue{
		fileNotFoundIssue.Id():         fileNotFoundIssue,
		compilerNotFoundIssue.Id():     compilerNotFoundIssue,
		compilationFailedIssue.Id():    compilationFailedIssue,
		clipboardUnavailableIssue.Id(): clipboardUnavailableIssue,
		shellNotFoundIssue.Id():        shellNotFoundIssue,
		runtimeNotAvailableIssue.Id():  runtimeNotAvailableIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		watchFailedIssue.Id():          watchFailedIssue,
	}
)

// String returns the guide's name, for example "file-not-found".
func (id Id) String() string {
	if i, ok := issues[id]; ok {
		return i.name
	}
	return fmt.Sprintf("issue-%d", int(id))
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) Name() string {
	return i.name
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guide with the glamour style at stylePath
// ("dark", "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also:\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

// Values returns every guide ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}

// Parse looks a guide up by name or by numeric id.
func Parse(s string) (*Issue, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, i := range issues {
		if i.name == s || fmt.Sprint(int(i.id)) == s {
			return i, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownIssue, s)
}
