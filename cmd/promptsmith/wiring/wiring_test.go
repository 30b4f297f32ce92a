package wiring_test

import (
	"context"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/cmd/promptsmith/wiring"
	"github.com/papercomputeco/promptsmith/pkg/config"
	"github.com/papercomputeco/promptsmith/pkg/eventstream"
	"github.com/papercomputeco/promptsmith/pkg/eventstream/kafka"
	"github.com/papercomputeco/promptsmith/pkg/eventstream/nop"
	"github.com/papercomputeco/promptsmith/pkg/gateway"
	"github.com/papercomputeco/promptsmith/pkg/logger"
	"github.com/papercomputeco/promptsmith/pkg/storage/inmemory"
	"github.com/papercomputeco/promptsmith/pkg/storage/sqlite"
)

var _ = Describe("wiring", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.NewDefaultConfig()
	})

	Describe("LoadConfig", func() {
		It("lets bound flags override the config file", func() {
			dir := GinkgoT().TempDir()
			cfger, err := config.NewConfiger(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfger.SetConfigValue("gateway.model", "from-file")).To(Succeed())
			Expect(cfger.SetConfigValue("gateway.base_url", "http://file.example/v1")).To(Succeed())

			var model, baseURL string
			cmd := &cobra.Command{Use: "probe"}
			cmd.Flags().String("config-dir", dir, "")
			config.AddStringFlag(cmd, config.Flags, config.FlagModel, &model)
			config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &baseURL)
			Expect(cmd.Flags().Set("model", "from-flag")).To(Succeed())

			loaded, err := wiring.LoadConfig(cmd, config.FlagModel, config.FlagBaseURL)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Gateway.Model).To(Equal("from-flag"))
			Expect(loaded.Gateway.BaseURL).To(Equal("http://file.example/v1"))
		})
	})

	Describe("NewGatewayClient", func() {
		It("calls the gateway directly by default", func() {
			cfg.Gateway.BaseURL = "http://gateway.local/v1"
			client, err := wiring.NewGatewayClient(cfg, true, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Endpoint()).To(Equal("http://gateway.local/v1/chat/completions"))
		})

		It("goes through the proxy when a target is set", func() {
			cfg.Client.ProxyTarget = "http://localhost:8080"
			client, err := wiring.NewGatewayClient(cfg, true, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Endpoint()).To(Equal("http://localhost:8080" + gateway.GeneratePromptPath))
		})

		It("ignores the proxy target when asked to", func() {
			cfg.Gateway.BaseURL = "http://gateway.local/v1"
			cfg.Client.ProxyTarget = "http://localhost:8080"
			client, err := wiring.NewGatewayClient(cfg, false, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Endpoint()).To(HavePrefix("http://gateway.local/v1"))
		})
	})

	Describe("StreamOptions", func() {
		It("returns an option per stream limit", func() {
			Expect(wiring.StreamOptions(cfg)).To(HaveLen(3))
		})
	})

	Describe("NewStorageDriver", func() {
		It("keeps history in memory when nothing is configured", func() {
			driver, err := wiring.NewStorageDriver(context.Background(), cfg, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).To(BeAssignableToTypeOf(&inmemory.Driver{}))
		})

		It("opens SQLite when a path is configured", func() {
			cfg.Storage.SQLitePath = filepath.Join(GinkgoT().TempDir(), "history.db")
			driver, err := wiring.NewStorageDriver(context.Background(), cfg, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(driver.Close)
			Expect(driver).To(BeAssignableToTypeOf(&sqlite.Driver{}))
		})
	})

	Describe("NewPublisher", func() {
		It("disables publishing by default", func() {
			pub, err := wiring.NewPublisher(cfg, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(pub).To(BeAssignableToTypeOf(&nop.Publisher{}))
		})

		It("builds a kafka publisher", func() {
			cfg.EventStream.Provider = config.EventStreamKafka
			cfg.EventStream.Brokers = "localhost:9092"
			cfg.EventStream.Topic = "promptsmith.turns"

			pub, err := wiring.NewPublisher(cfg, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(pub.Close)
			Expect(pub).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		})

		It("rejects unknown providers", func() {
			cfg.EventStream.Provider = "carrier-pigeon"
			_, err := wiring.NewPublisher(cfg, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("carrier-pigeon")))
			Expect(errors.Is(err, eventstream.ErrUnknownProvider)).To(BeTrue())
		})
	})
})
