package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	rpc "github.com/sagernet/sing-rpc"
	E "github.com/sagernet/sing-rpc/common/exceptions"
	"github.com/sagernet/sing-rpc/common/log"
	"github.com/sagernet/sing-rpc/common/wire"
	"github.com/sagernet/sing-rpc/conf"
	"github.com/sagernet/sing-rpc/endpoint"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type flags struct {
	ConfigFile string
	LogLevel   string
	Server     bool
	Encoding   string
	Timeout    time.Duration
}

func main() {
	f := new(flags)

	command := &cobra.Command{
		Use:     "endpointctl",
		Short:   "inspect and serve rpc endpoints",
		Version: rpc.VersionStr,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := log.SetLevel(f.LogLevel); err != nil {
				logrus.Fatal(err)
			}
		},
	}
	command.PersistentFlags().StringVarP(&f.ConfigFile, "config", "c", "", "Use a configuration file.")
	command.PersistentFlags().StringVar(&f.LogLevel, "log-level", "", "Set the log level.")

	parse := &cobra.Command{
		Use:   "parse <endpoint>...",
		Short: "Print the canonical form of endpoints",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			registry := loadRegistry(f)
			for _, text := range args {
				endpoints, err := registry.ParseList(text, f.Server)
				if err != nil {
					logrus.Fatal(err)
				}
				for _, it := range endpoints {
					fmt.Println(it)
				}
			}
		},
	}
	parse.Flags().BoolVar(&f.Server, "server", false, "Parse as server endpoints.")

	encode := &cobra.Command{
		Use:   "encode <endpoint>",
		Short: "Print the wire form of an endpoint in hex",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			registry := loadRegistry(f)
			parsed, err := registry.Parse(args[0], false)
			if err != nil {
				logrus.Fatal(err)
			}
			stream := wire.NewOutputStream(parseEncoding(f))
			defer stream.Release()
			err = endpoint.Write(stream, parsed)
			if err != nil {
				logrus.Fatal(err)
			}
			fmt.Println(hex.EncodeToString(stream.Bytes()))
		},
	}
	encode.Flags().StringVarP(&f.Encoding, "encoding", "e", wire.CurrentEncoding.String(), "Set the encoding version.")

	decode := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode the wire form of an endpoint",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			registry := loadRegistry(f)
			data, err := hex.DecodeString(strings.TrimSpace(args[0]))
			if err != nil {
				logrus.Fatal(E.Cause(err, "decode hex"))
			}
			decoded, err := registry.Read(wire.NewInputStream(parseEncoding(f), data))
			if err != nil {
				logrus.Fatal(err)
			}
			fmt.Println(decoded)
		},
	}
	decode.Flags().StringVarP(&f.Encoding, "encoding", "e", wire.CurrentEncoding.String(), "Set the encoding version.")

	expand := &cobra.Command{
		Use:   "expand <endpoint>",
		Short: "Print the endpoints a server endpoint publishes",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			registry := loadRegistry(f)
			parsed, err := registry.Parse(args[0], true)
			if err != nil {
				logrus.Fatal(err)
			}
			expanded, err := parsed.Expand()
			if err != nil {
				logrus.Fatal(err)
			}
			for _, it := range expanded {
				fmt.Println(it)
			}
		},
	}

	sort := &cobra.Command{
		Use:   "sort <endpoint>...",
		Short: "Print endpoints in their total order",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			registry := loadRegistry(f)
			var endpoints []endpoint.Endpoint
			for _, text := range args {
				parsed, err := registry.ParseList(text, false)
				if err != nil {
					logrus.Fatal(err)
				}
				endpoints = append(endpoints, parsed...)
			}
			endpoint.Sort(endpoints)
			for _, it := range endpoints {
				fmt.Println(it)
			}
		},
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured adapters with an echo handler",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			run(f)
		},
	}

	ping := &cobra.Command{
		Use:   "ping <endpoint> <message>",
		Short: "Send a message to an echo server and print the reply",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			err := sendPing(f, args[0], args[1])
			if err != nil {
				logrus.Fatal(err)
			}
		},
	}
	ping.Flags().DurationVarP(&f.Timeout, "timeout", "t", 5*time.Second, "Set the reply timeout.")

	command.AddCommand(parse, encode, decode, expand, sort, serve, ping)

	err := command.Execute()
	if err != nil {
		logrus.Fatal(err)
	}
}

func loadConfig(f *flags) *conf.Config {
	if f.ConfigFile == "" {
		return new(conf.Config)
	}
	config, err := conf.Read(f.ConfigFile)
	if err != nil {
		logrus.Fatal(err)
	}
	if f.LogLevel == "" {
		if err = log.SetLevel(config.Log.Level); err != nil {
			logrus.Fatal(err)
		}
	}
	return config
}

func loadRegistry(f *flags) *endpoint.Registry {
	registry, err := loadConfig(f).Registry(log.NewLogger("endpoint"))
	if err != nil {
		logrus.Fatal(err)
	}
	return registry
}

func parseEncoding(f *flags) wire.Version {
	version, err := wire.ParseVersion(f.Encoding)
	if err != nil {
		logrus.Fatal(E.Cause(err, "parse encoding"))
	}
	if !version.Supported() {
		logrus.Fatal("unsupported encoding ", version)
	}
	return version
}

func echo(ctx context.Context, transceiver endpoint.Transceiver, data []byte) ([]byte, error) {
	logrus.Debug("echo ", len(data), " bytes on ", transceiver)
	return data, nil
}

func run(f *flags) {
	config := loadConfig(f)
	if len(config.Adapters) == 0 {
		logrus.Fatal("missing adapters in configuration")
	}
	instance, err := config.Build(context.Background(), log.NewLogger("rpc"), prometheus.DefaultRegisterer, rpc.HandlerFunc(echo))
	if err != nil {
		logrus.Fatal(err)
	}
	for _, adapterConfig := range config.Adapters {
		adapter, _ := instance.Adapter(adapterConfig.Name)
		for _, published := range adapter.Endpoints() {
			logrus.Info("adapter ", adapter.Name(), " listening on ", published)
		}
	}

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)
	<-osSignals

	err = instance.Close()
	if err != nil {
		logrus.Error(err)
	}
}

func sendPing(f *flags, text string, message string) error {
	config := loadConfig(f)
	ctx, cancel := context.WithTimeout(context.Background(), f.Timeout)
	defer cancel()
	instance, err := rpc.NewInstance(ctx, config.Options(log.NewLogger("rpc"), nil))
	if err != nil {
		return err
	}
	defer instance.Close()
	transceiver, err := instance.Connect(ctx, text, endpoint.SelectionOrdered)
	if err != nil {
		return err
	}
	defer transceiver.Close()
	if conn, isConn := transceiver.(interface{ SetDeadline(time.Time) error }); isConn {
		deadline, _ := ctx.Deadline()
		conn.SetDeadline(deadline)
	}
	_, err = transceiver.Write([]byte(message))
	if err != nil {
		return E.Cause(err, "write to ", transceiver)
	}
	buffer := make([]byte, 65535)
	n, err := transceiver.Read(buffer)
	if err != nil {
		return E.Cause(err, "read from ", transceiver)
	}
	fmt.Println(string(buffer[:n]))
	return nil
}
