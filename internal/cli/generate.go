package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/CloudCIX/docgen/internal/config"
	"github.com/CloudCIX/docgen/internal/docgen"
	"github.com/CloudCIX/docgen/internal/logging"
	"github.com/CloudCIX/docgen/internal/source"
	"github.com/CloudCIX/docgen/internal/source/astindex"
	"github.com/CloudCIX/docgen/internal/source/manifest"
)

type generateOptions struct {
	Target     string
	Output     string
	Format     string
	ConfigFile string
	Debug      bool
	Manifest   bool
}

// generate runs one full pass: index the application, generate the document,
// and write it. A run with any collected error writes nothing and fails.
func generate(out io.Writer, opts generateOptions) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return err
	}
	if opts.Output != "" {
		cfg.Output = opts.Output
	}
	if opts.Format != "" {
		cfg.Format = strings.ToLower(opts.Format)
	}

	level := cfg.LogLevel
	if opts.Debug {
		level = "debug"
	}
	log := logging.New(level, cfg.Pretty)

	start := time.Now()

	var idx *source.Index
	if opts.Manifest || strings.HasSuffix(opts.Target, ".yaml") || strings.HasSuffix(opts.Target, ".yml") {
		idx, err = manifest.Load(opts.Target)
	} else {
		idx, err = astindex.Load(opts.Target)
	}
	if err != nil {
		// Discovery failures are fatal: nothing was processed, nothing is
		// written.
		var de *source.DiscoveryError
		if errors.As(err, &de) {
			log.Error().Str("application", de.App).Msg(de.Error())
		}
		return err
	}

	agg := docgen.NewAggregator()
	gen := docgen.New(idx, docgen.Options{
		ContactEmail: cfg.ContactEmail,
		ServerURL:    cfg.ServerURL,
		DocsURL:      cfg.DocsURL,
	}, log, agg)
	doc := gen.Run()

	if agg.Len() > 0 {
		for _, e := range agg.Errors() {
			log.Error().Msg(e.String())
		}
		log.Error().Int("errors", agg.Len()).Msg("ERRORS FOUND WHEN PARSING DOCUMENTATION")
		return fmt.Errorf("%d documentation errors found, nothing written", agg.Len())
	}

	if err := writeDocument(doc, cfg.Output, cfg.Format); err != nil {
		return err
	}

	log.Info().
		Str("output", cfg.Output).
		Dur("elapsed", time.Since(start)).
		Msg("documentation generated")
	fmt.Fprintf(out, "Summary: %d paths, %d schemas\n", len(doc.Paths), len(doc.Components.Schemas))
	return nil
}

func writeDocument(doc *docgen.Document, output, format string) error {
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	switch format {
	case "json":
		encoder := json.NewEncoder(f)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case "yaml", "yml":
		// Round-trip through JSON so the YAML output carries the document's
		// wire field names rather than Go struct names.
		raw, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("failed to convert document: %w", err)
		}
		encoder := yaml.NewEncoder(f)
		encoder.SetIndent(2)
		if err := encoder.Encode(generic); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s (use json or yaml)", format)
	}
	return nil
}
