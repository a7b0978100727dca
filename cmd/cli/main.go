package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"codejudge/internal/cli/command"
	"codejudge/internal/cli/config"
	"codejudge/internal/cli/http"
	"codejudge/internal/cli/repl"
	"codejudge/internal/common/mq"
	"codejudge/internal/judge/transport/natsjudge"
)

const defaultConfigPath = "configs/cli.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	baseURL := flag.String("base", "", "Override base URL")
	timeout := flag.Duration("timeout", 0, "Override request timeout (e.g. 10s)")
	transport := flag.String("transport", "", "Override transport (http or nats)")
	natsURL := flag.String("nats", "", "Override NATS URL")
	pretty := flag.Bool("pretty", false, "Pretty print JSON output")
	execLine := flag.String("c", "", "Run one command and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *transport != "" {
		cfg.Transport = *transport
	}
	if *natsURL != "" {
		cfg.NATSURL = *natsURL
	}
	if *pretty {
		trueValue := true
		cfg.PrettyJSON = &trueValue
	}

	client := httpclient.New(cfg.BaseURL, cfg.Timeout)
	var judge repl.Judge = client
	if cfg.Transport == config.TransportNATS {
		queue, err := mq.NewNATSQueue(mq.NATSConfig{URL: cfg.NATSURL, Name: "judge-cli"})
		if err != nil {
			fmt.Fprintf(os.Stderr, "connect nats failed: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = queue.Close() }()
		judge = natsjudge.NewClient(queue)
		client = nil
	}

	session := repl.New(judge, client, command.Registry(), cfg.PrettyJSON != nil && *cfg.PrettyJSON, os.Stdin, os.Stdout)
	if *execLine != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		if err := session.Exec(ctx, *execLine); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			cancel()
			os.Exit(1)
		}
		return
	}
	session.Run(context.Background())
}
