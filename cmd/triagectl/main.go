package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yungbote/triage-backend/internal/client"
	"github.com/yungbote/triage-backend/internal/platform/envutil"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: triagectl upload -file paper.pdf [-email x] [-title x] [-institution x] [-test] [-no-wait]")
}

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 || os.Args[1] != "upload" {
		usage()
		os.Exit(2)
	}

	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	baseURL := fs.String("api", envutil.String("TRIAGE_API_URL", "http://localhost:8080"), "API base URL")
	path := fs.String("file", "", "PDF to upload")
	email := fs.String("email", "", "contact email")
	title := fs.String("title", "", "research title")
	institution := fs.String("institution", "", "institution")
	testMode := fs.Bool("test", false, "use the test pipeline webhook")
	noWait := fs.Bool("no-wait", false, "return right after the upload")
	_ = fs.Parse(os.Args[2:])
	if *path == "" {
		usage()
		os.Exit(2)
	}

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, *baseURL, *path, *email, *title, *institution, *testMode, !*noWait); err != nil {
		fmt.Fprintf(os.Stderr, "triagectl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, baseURL, path, email, title, institution string, testMode, wait bool) error {
	api, err := client.New(baseURL, nil)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	meta := map[string]string{}
	for k, v := range map[string]string{"contact_email": email, "research_title": title, "institution": institution} {
		if v != "" {
			meta[k] = v
		}
	}
	res, err := api.Upload(ctx, client.UploadRequest{Filename: path, File: f, Meta: meta, TestMode: testMode})
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	app := res.Application
	fmt.Printf("Uploaded application %s (status %s)\n", app.ID, app.Status)
	if res.ProcessingError != "" {
		fmt.Printf("Warning: %s\n", res.ProcessingError)
	}
	if !wait {
		return nil
	}

	out, err := client.NewPoller(api, log).WaitForProcessed(ctx, app.ID)
	if err != nil {
		return err
	}
	if out.Processed {
		fmt.Printf("Processing complete after %d checks.\n", out.Attempts)
		return nil
	}
	fmt.Println(out.Notice)
	return nil
}
