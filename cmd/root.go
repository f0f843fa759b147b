package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wsfetch/internal"
	"wsfetch/server"
	"wsfetch/utils"
	"wsfetch/webshare"
)

var (
	configPath  string
	listenAddr  string
	downloadDir string
	proxyURL    string
	rateLimit   string
	quiet       bool
	debug       bool
	logLevel    string
	logFile     string
	config      *internal.Config
)

var rootCmd = &cobra.Command{
	Use:     "wsfetch",
	Short:   "Search and download files from Webshare.cz",
	Version: "v1.0.0",
	Long: `wsfetch authenticates against the Webshare.cz API, searches its catalog,
and downloads files to local storage.

Examples:
  wsfetch serve --addr :5000 --downloads /downloads
  wsfetch search "ubuntu iso"
  wsfetch get a1B2c3D4 -o /downloads

Environment Variables:
  WEBSHARE_USERNAME   Account username or email
  WEBSHARE_PASSWORD   Account password
  DOWNLOAD_PATH       Download directory (default /downloads)
  WSFETCH_ADDR        Listen address for serve
  WSFETCH_PROXY       HTTP/SOCKS proxy URL
  WSFETCH_TIMEOUT     API timeout in seconds
  WSFETCH_LOG_LEVEL   Log level (debug, info, warn, error)`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfiguration(); err != nil {
			return fmt.Errorf("configuration error: %v", err)
		}

		if err := internal.InitLogger(config); err != nil {
			return fmt.Errorf("failed to initialize logger: %v", err)
		}

		internal.LogDebug("Configuration loaded: addr=%s, downloads=%s, timeout=%d",
			config.ListenAddr, config.DownloadDir, config.TimeoutSecs)

		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web front-end",
	Long: `Start the HTTP server hosting the search and download front-end.

Logs in automatically at startup when credentials are configured; a failed
auto-login is reported through /api/status and can be retried via
POST /api/login.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		orchestrator := webshare.NewOrchestratorWithConfig(client, &webshare.OrchestratorConfig{
			HTTPClient: newStreamClient(),
		})
		defer orchestrator.Close()

		srv := server.New(client, orchestrator, config)
		srv.AutoLogin()

		httpServer := &http.Server{
			Addr:    config.ListenAddr,
			Handler: srv,
		}

		// Graceful shutdown on SIGINT/SIGTERM
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			internal.LogInfo("Received signal %v, shutting down...", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			httpServer.Shutdown(ctx)
		}()

		internal.LogInfo("Starting wsfetch on %s", config.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <QUERY>",
	Short: "Search the remote catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		if err := loginWithConfig(client); err != nil {
			return err
		}

		results, err := client.Search(args[0])
		if err != nil {
			internal.LogError("Search failed: %v", err)
			return fmt.Errorf("search failed: %w", err)
		}

		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}

		fmt.Printf("%-14s %10s %10s  %s\n", "ID", "SIZE", "DOWNLOADS", "NAME")
		for _, r := range results {
			fmt.Printf("%-14s %10s %10d  %s\n", r.ID, r.SizeFormatted, r.Downloads, r.Name)
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <FILE_ID>",
	Short: "Download a file by its catalog id",
	Long: `Resolve a file id to a direct link and download it synchronously with a
progress bar.

Examples:
  wsfetch get a1B2c3D4
  wsfetch get a1B2c3D4 -o /downloads -r 5M`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		if err := loginWithConfig(client); err != nil {
			return err
		}

		var rateLimitBytes int64
		if rateLimit != "" {
			var err error
			rateLimitBytes, err = utils.ParseRateLimit(rateLimit)
			if err != nil {
				return fmt.Errorf("invalid rate limit format: %v\n\nSupported formats:\n  - 1M (1 MB/s)\n  - 500K (500 KB/s)\n  - 1024 (1024 bytes/s)", err)
			}
		}

		return executeGetWorkflow(client, args[0], config.DownloadDir, rateLimitBytes)
	},
}

// loadConfiguration builds the effective configuration: defaults, then the
// optional YAML file, then environment variables, then CLI flags.
func loadConfiguration() error {
	config = internal.DefaultConfig()

	if configPath != "" {
		if err := config.LoadFromFile(configPath); err != nil {
			return err
		}
	}

	config.LoadFromEnv()

	if listenAddr != "" {
		config.ListenAddr = listenAddr
	}
	if downloadDir != "" {
		config.DownloadDir = downloadDir
	}
	if proxyURL != "" {
		config.ProxyURL = proxyURL
	}
	if debug {
		config.EnableDebug = true
		config.LogLevel = "debug"
	}
	if quiet {
		config.QuietMode = true
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if logFile != "" {
		config.LogFile = logFile
	}

	return config.ValidateConfig()
}

// newAPIClient creates the remote client used for API calls, with the
// configured overall timeout.
func newAPIClient() *webshare.Client {
	httpClient := utils.NewHTTPClientWithConfig(&utils.HTTPClientConfig{
		Timeout:  time.Duration(config.TimeoutSecs) * time.Second,
		ProxyURL: config.ProxyURL,
	})
	return webshare.NewClientWithHTTP(config.BaseURL, httpClient)
}

// newStreamClient creates the HTTP client for download streams. No overall
// timeout: a large file may legitimately take hours.
func newStreamClient() *utils.HTTPClient {
	return utils.NewHTTPClientWithConfig(&utils.HTTPClientConfig{
		Timeout:  0,
		ProxyURL: config.ProxyURL,
	})
}

// loginWithConfig logs the client in using configured credentials.
func loginWithConfig(client *webshare.Client) error {
	if !config.CredentialsConfigured() {
		return fmt.Errorf("no credentials configured: set WEBSHARE_USERNAME and WEBSHARE_PASSWORD")
	}
	if err := client.Login(config.Username, config.Password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return nil
}

// executeGetWorkflow resolves fileID and streams it to destDir with a
// progress bar.
func executeGetWorkflow(client *webshare.Client, fileID, destDir string, rateLimitBytes int64) error {
	internal.LogInfo("Resolving download link for %s", fileID)
	link, err := client.ResolveDownloadLink(fileID)
	if err != nil {
		return fmt.Errorf("failed to resolve download link: %w", err)
	}

	fileName := utils.SafeFileName(link.FileName)
	if !quiet {
		fmt.Printf("File: %s\n", fileName)
		if link.FileSize > 0 {
			fmt.Printf("Size: %s\n", utils.FormatFileSize(link.FileSize))
		}
		fmt.Println()
	}

	fileOps := utils.NewFileOperations()
	if err := fileOps.EnsureDir(destDir); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	resp, err := newStreamClient().Get(link.DownloadURL)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download request failed: unexpected HTTP status %d", resp.StatusCode)
	}

	totalSize := resp.ContentLength
	if totalSize <= 0 {
		totalSize = link.FileSize
	}

	var limiter internal.RateLimiter
	if rateLimitBytes > 0 {
		limiter = utils.NewTokenBucketLimiter(rateLimitBytes)
	}

	filePath := filepath.Join(destDir, fileName)
	out, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	tracker := utils.NewProgressTracker(totalSize, quiet)
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if limiter != nil {
				if err := limiter.Wait(context.Background(), n); err != nil {
					return err
				}
			}
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("failed to write output file: %w", writeErr)
			}
			tracker.Add(int64(n))
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return fmt.Errorf("download stream failed: %w", readErr)
		}
	}

	summary := tracker.Finish()
	summary.Filename = filePath

	if err := fileOps.MarkWorldReadable(filePath); err != nil {
		internal.LogWarn("Could not set file permissions for %s: %v", fileName, err)
	}

	if !quiet {
		fmt.Printf("Saved to: %s\n", filePath)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(getCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&proxyURL, "proxy", "", "HTTP/SOCKS proxy URL (env: WSFETCH_PROXY)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging (env: WSFETCH_DEBUG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (debug, info, warn, error) (env: WSFETCH_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr (env: WSFETCH_LOG_FILE)")

	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (env: WSFETCH_ADDR)")
	serveCmd.Flags().StringVar(&downloadDir, "downloads", "", "Download directory (env: DOWNLOAD_PATH)")

	getCmd.Flags().StringVarP(&downloadDir, "output", "o", "", "Download directory (env: DOWNLOAD_PATH)")
	getCmd.Flags().StringVarP(&rateLimit, "limit-rate", "r", "", "Bandwidth limit (e.g., 5M for 5MB/s)")
}

func Execute() error {
	return rootCmd.Execute()
}
