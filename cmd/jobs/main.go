// Command jobs is an operator tool for the video indexing account: it lists
// submitted videos and prints transcripts of processed ones.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ckriutz/dr-video/internal/auth"
	"github.com/ckriutz/dr-video/internal/videoindex"
	"github.com/ckriutz/dr-video/pkg/config"
	"github.com/ckriutz/dr-video/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr, err := logger.New("warn")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	broker := auth.NewBroker(&auth.ClientCredentials{
		TokenURL:     cfg.Identity.TokenURL,
		ClientID:     cfg.Identity.ClientID,
		ClientSecret: cfg.Identity.ClientSecret,
	}, cfg.Identity.RefreshMargin)

	client := videoindex.NewClient(videoindex.Config{
		APIURL:    cfg.Indexer.APIURL,
		AccountID: cfg.Indexer.AccountID,
		Location:  cfg.Indexer.Location,
		Scope:     cfg.Identity.IndexScope,
		Timeout:   cfg.Indexer.Timeout,
	}, broker, logr)

	ctx := context.Background()

	switch os.Args[1] {
	case "list":
		runList(ctx, client, os.Args[2:])
	case "transcript":
		runTranscript(ctx, client, os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: jobs list [-top N] [-skip N] | jobs transcript [-timecodes] <videoId>")
	os.Exit(2)
}

func runList(ctx context.Context, client *videoindex.Client, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	top := fs.Int("top", 25, "number of videos to list")
	skip := fs.Int("skip", 0, "videos to skip")
	fs.Parse(args) //nolint:errcheck

	videos, err := client.ListVideos(ctx, *top, *skip)
	if err != nil {
		log.Fatalf("list videos: %v", err)
	}

	for _, v := range videos {
		fmt.Printf("%s | %s | state=%s | created=%s\n", v.ID, v.Name, v.State, v.Created)
	}
}

func runTranscript(ctx context.Context, client *videoindex.Client, args []string) {
	fs := flag.NewFlagSet("transcript", flag.ExitOnError)
	timecodes := fs.Bool("timecodes", false, "include start/end timecodes")
	fs.Parse(args) //nolint:errcheck

	if fs.NArg() != 1 {
		usage()
	}
	videoID := fs.Arg(0)

	idx, err := client.FetchInsights(ctx, videoindex.Job{ID: videoID, State: videoindex.StateProcessed})
	if err != nil {
		log.Fatalf("fetch insights for %s: %v", videoID, err)
	}

	if len(idx.Videos) == 0 || len(idx.Videos[0].Insights.Transcript) == 0 {
		fmt.Println("no transcript lines found")
		return
	}

	for _, entry := range idx.Videos[0].Insights.Transcript {
		if entry.Text == "" {
			continue
		}
		if *timecodes && len(entry.Instances) > 0 {
			inst := entry.Instances[0]
			fmt.Printf("[%s-%s] %s\n", inst.Start, inst.End, entry.Text)
			continue
		}
		fmt.Println(entry.Text)
	}
}
