package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fileforge/fileforge/internal/convert"
	"github.com/fileforge/fileforge/internal/format"
)

func main() {
	var (
		target = flag.String("to", "", "target extension, e.g. png (default: first output for the category)")
		outDir = flag.String("out", "", "output directory (default: alongside the input)")
		quiet  = flag.Bool("quiet", false, "suppress progress output")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: fileforge [flags] <file>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	svc := convert.NewService()
	failed := 0
	for _, path := range flag.Args() {
		if err := convertFile(svc, path, *target, *outDir, *quiet); err != nil {
			fmt.Fprintf(os.Stderr, "fileforge: %s: %v\n", path, err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func convertFile(svc *convert.Service, path, target, outDir string, quiet bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")

	category := format.Classify(ext)
	if category == format.Unsupported {
		return fmt.Errorf("unsupported format %q", ext)
	}
	if target == "" {
		target = format.DefaultOutputFor(category)
	}
	target = format.Normalize(target)
	if !format.IsOutput(category, target) {
		return fmt.Errorf("%s is not a valid %s target", target, category)
	}

	progress := func(ev convert.Event) {
		if quiet {
			return
		}
		switch ev.Phase {
		case convert.PhaseConverting:
			fmt.Fprintf(os.Stderr, "%s: converting %d%%\n", name, ev.Percent)
		case convert.PhaseCompleted:
			fmt.Fprintf(os.Stderr, "%s: completed\n", name)
		case convert.PhaseError:
			fmt.Fprintf(os.Stderr, "%s: error: %s\n", name, ev.Message)
		}
	}

	artifact, err := svc.Convert(context.Background(), category, convert.Request{
		Name:      name,
		Size:      int64(len(data)),
		SourceExt: ext,
		TargetExt: target,
		Data:      data,
	}, progress)
	if err != nil {
		return err
	}

	outName := strings.TrimSuffix(name, filepath.Ext(name)) + "." + artifact.Ext
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	outPath := filepath.Join(outDir, outName)
	if err := os.WriteFile(outPath, artifact.Data, 0o644); err != nil {
		return err
	}
	fmt.Printf("%s -> %s (%d bytes)\n", path, outPath, len(artifact.Data))
	return nil
}
