package dgcore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/HPNChanel/data-guardian/internal/config"
	"github.com/HPNChanel/data-guardian/internal/transport"
	"github.com/HPNChanel/data-guardian/pkg/client"
)

const dialTimeout = 3 * time.Second

func clientEndpoint() (transport.Endpoint, error) {
	if flagSocket != "" {
		return transport.Endpoint{Kind: transport.KindUnix, Addr: flagSocket}, nil
	}
	if flagPipe != "" {
		return transport.Endpoint{Kind: transport.KindPipe, Addr: flagPipe}, nil
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return transport.Endpoint{}, err
	}
	return cfg.Endpoint()
}

func dialDaemon() (*client.Client, error) {
	endpoint, err := clientEndpoint()
	if err != nil {
		return nil, err
	}
	return client.Dial(endpoint, dialTimeout)
}

func printJSON(v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}
