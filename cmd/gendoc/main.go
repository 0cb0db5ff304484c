package main

import (
	"compress/gzip"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/owenthereal/upline/cmd/upline/command"
	"github.com/owenthereal/upline/internal/version"
	"github.com/spf13/cobra/doc"
)

const manDir = "./etc/man/man1"

func main() {
	rootCmd := command.Root()
	rootCmd.DisableAutoGenTag = true

	if err := os.MkdirAll("./docs", 0o755); err != nil {
		fatal(err)
	}
	if err := doc.GenMarkdownTree(rootCmd, "./docs"); err != nil {
		fatal(err)
	}

	if err := os.MkdirAll(manDir, 0o755); err != nil {
		fatal(err)
	}
	header := &doc.GenManHeader{
		Title:   "UPLINE",
		Section: "1",
		Source:  "Upline " + version.String(),
		Manual:  "Upline Manual",
	}
	if err := doc.GenManTree(rootCmd, header, manDir); err != nil {
		fatal(err)
	}
	pages, err := filepath.Glob(filepath.Join(manDir, "*.1"))
	if err != nil {
		fatal(err)
	}
	for _, p := range pages {
		if err := compressFile(p); err != nil {
			fatal(err)
		}
	}

	if err := os.MkdirAll("./etc/completion", 0o755); err != nil {
		fatal(err)
	}
	if err := rootCmd.GenBashCompletionFile("./etc/completion/upline.bash_completion.sh"); err != nil {
		fatal(err)
	}
	if err := rootCmd.GenZshCompletionFile("./etc/completion/upline.zsh_completion"); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	slog.Error("error generating docs", "error", err)
	os.Exit(1)
}

func compressFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	compressedFile, err := os.Create(filename + ".gz")
	if err != nil {
		return err
	}
	defer compressedFile.Close()

	gzipWriter := gzip.NewWriter(compressedFile)
	if _, err := io.Copy(gzipWriter, file); err != nil {
		_ = gzipWriter.Close()
		return err
	}
	if err := gzipWriter.Close(); err != nil {
		return err
	}

	// Remove the original uncompressed file
	return os.Remove(filename)
}
