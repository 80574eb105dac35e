// Command mk builds this repository. Targets are passed as arguments:
//
//	go build -o mk ./scripts && ./mk clean build test
//
// Without arguments it runs "build". The binary rebuilds itself when this file changes.
package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ngld/selfbuild/pkg/bootstrap"
	"github.com/ngld/selfbuild/pkg/fsops"
	"github.com/ngld/selfbuild/pkg/mk"
)

type target struct {
	help string
	run  func(b *mk.Build, root string)
}

var targets = map[string]target{
	"build": {
		help: "compile the selfbuild CLI into build/",
		run: func(b *mk.Build, root string) {
			b.Mkdir(fsops.Path(root, "build"))
			b.Cmd("go", "build", "-o", fsops.Path(root, "build", "selfbuild"), "./cmd/selfbuild")
		},
	},
	"test": {
		help: "run the unit tests",
		run: func(b *mk.Build, root string) {
			b.Cmd("go", "test", "./...")
		},
	},
	"examples": {
		help: "build the example build programs into build/",
		run: func(b *mk.Build, root string) {
			b.Mkdir(fsops.Path(root, "build"))
			b.Cmd("go", "build", "-o", fsops.Path(root, "build", "capp-mk"), "./examples/capp")
		},
	},
	"tools": {
		help: "install development tools into .tools/",
		run: func(b *mk.Build, root string) {
			tools := b.WithEnv(map[string]string{"GOBIN": fsops.Path(root, ".tools")})
			tools.Shell("go install honnef.co/go/tools/cmd/staticcheck@latest")
		},
	},
	"clean": {
		help: "remove build outputs",
		run: func(b *mk.Build, root string) {
			b.Rm(fsops.Path(root, "build"), fsops.Path(root, ".tools"))
		},
	},
}

func usage(b *mk.Build) {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	b.Info("Usage: mk [target]...")
	for _, name := range names {
		b.Info("    %-10s %s", name, targets[name].help)
	}
}

func main() {
	b := mk.Init()
	b.RebuildMyself()

	source, err := bootstrap.SourcePath(0)
	if err != nil {
		b.Fatal("Could not determine the location of mk.go: %s", err)
		return
	}
	root := filepath.Dir(filepath.Dir(source))
	b.Runner.Dir = root

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"build"}
	}

	for _, name := range args {
		if name == "help" || strings.HasPrefix(name, "-") {
			usage(b)
			return
		}

		t, ok := targets[name]
		if !ok {
			usage(b)
			b.Fatal("Unknown target %s", name)
			return
		}

		b.Info("Running target %s", name)
		t.run(b, root)
	}
}
