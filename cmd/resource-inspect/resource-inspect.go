package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"

	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"

	"github.com/driftwood-io/resource-sdk/pkg/resource"
	"github.com/driftwood-io/resource-sdk/pkg/resource/store"
)

const (
	appName string = "resource-inspect"
)

func main() {
	appVersion := buildinfo.SourceVersion()

	ctx, log, cleanup := o11y.Init(context.Background(), appName, appVersion, "json")
	defer cleanup()

	cfg := LoadConfiguration(ctx)

	typeName := flag.String("type", "", "name of the resource type to inspect")
	flag.Parse()

	if *typeName == "" || flag.NArg() != 1 {
		log.Error("usage: resource-inspect -type <name> <href or identifier>")
		os.Exit(1)
	}

	registry, err := loadRegistry(cfg.schemaPath)
	if err != nil {
		log.Error("failed to load resource schema", "err", err.Error())
		os.Exit(1)
	}

	typ, err := registry.Type(*typeName)
	if err != nil {
		log.Error("unknown resource type", slog.String("type", *typeName), "err", err.Error())
		os.Exit(1)
	}

	client := resource.NewClient(cfg.apiURL,
		store.NewHTTPStore(
			store.Debug(cfg.debug),
			store.UserAgent(appName+"/"+appVersion),
		),
	)

	r, err := resource.New(client, typ, resource.WithHref(flag.Arg(0)))
	if err != nil {
		log.Error("failed to create resource", "err", err.Error())
		os.Exit(1)
	}

	properties, err := dump(ctx, r)
	if err != nil {
		log.Error("failed to inspect resource", slog.String("href", r.Href()), "err", err.Error())
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	err = enc.Encode(properties)
	if err != nil {
		log.Error("failed to encode properties", "err", err.Error())
		os.Exit(1)
	}
}

type Config struct {
	apiURL     string
	schemaPath string
	debug      string
}

func LoadConfiguration(ctx context.Context) Config {
	return Config{
		apiURL:     env.GetVariableOrDefault(ctx, "RESOURCE_API_URL", "https://api.example.com/v1"),
		schemaPath: env.GetVariableOrDefault(ctx, "RESOURCE_SCHEMA", "/opt/resource-inspect/schema.yaml"),
		debug:      env.GetVariableOrDefault(ctx, "RESOURCE_CLIENT_DEBUG", "false"),
	}
}

func loadRegistry(path string) (*resource.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return resource.LoadSchema(f)
}

// dump materializes the resource and flattens it to something printable.
// Nested resources and collections are reduced to their locators.
func dump(ctx context.Context, r *resource.Resource) (map[string]any, error) {
	keys, err := r.Keys(ctx)
	if err != nil {
		return nil, err
	}

	properties := map[string]any{}

	for _, key := range keys {
		value, err := r.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		switch v := value.(type) {
		case *resource.Resource:
			properties[key] = v.Href()
		case *resource.Collection:
			properties[key] = v.Href()
		case *resource.FixedDict:
			properties[key] = v.Properties()
		default:
			properties[key] = value
		}
	}

	return properties, nil
}
