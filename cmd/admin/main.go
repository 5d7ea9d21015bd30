package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "metrics":
			getCmd("metrics", "/metrics", os.Args[2:])
			return
		case "bootstrap":
			getCmd("bootstrap", "/v1/bootstrap", os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints run ids, oldest first.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	runs, err := listRuns(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, r := range runs {
		fmt.Println(r)
	}
}

func listRuns(dataDir string) ([]string, error) {
	base := filepath.Join(dataDir, "runs")
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}
	type run struct {
		id  string
		mod int64
	}
	var runs []run
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		runs = append(runs, run{id: e.Name(), mod: info.ModTime().UnixNano()})
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].mod != runs[j].mod {
			return runs[i].mod < runs[j].mod
		}
		return runs[i].id < runs[j].id
	})
	out := make([]string, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.id)
	}
	return out, nil
}
