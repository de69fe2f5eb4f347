package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keyforge-project/keyforge/client"
	"github.com/keyforge-project/keyforge/client/filehandler"
	"github.com/keyforge-project/keyforge/client/pipeline"
	"github.com/keyforge-project/keyforge/internal/config"
	"github.com/keyforge-project/keyforge/internal/logger"
)

// fileExtensions limits which files collectFileCandidates considers
// for each file type, mirroring the extension allow-list the original
// signing client applies before ever attempting a split.
var fileExtensions = map[client.FileType][]string{
	client.FileTypeRPM:          {".rpm", ".srpm"},
	client.FileTypeChecksum:     {".txt", ".sha256sum", ".asc"},
	client.FileTypeKernelModule: {".ko"},
	client.FileTypeEFI:          {".efi"},
}

var signFlags struct {
	fileType    string
	keyType     string
	keyID       string
	detached    bool
	signType    string
	baseURL     string
	wsURL       string
	token       string
	concurrency int64
}

var signCmd = &cobra.Command{
	Use:   "sign [path]",
	Short: "sign a file, or every matching file under a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)

	signCmd.Flags().StringVar(&signFlags.fileType, "file-type", "", "file type to sign: rpm, checksum, ko, efi, generic")
	signCmd.Flags().StringVar(&signFlags.keyType, "key-type", "", "key type to sign with: pgp, x509")
	signCmd.Flags().StringVar(&signFlags.keyID, "key-id", "", "key id or name to sign with")
	signCmd.Flags().BoolVar(&signFlags.detached, "detached", false, "create a detached signature")
	signCmd.Flags().StringVar(&signFlags.signType, "sign-type", "", "signature container type: cms, authenticode")
	signCmd.Flags().StringVar(&signFlags.baseURL, "server", "http://127.0.0.1:8080", "keyforge server base URL for key-info lookups")
	signCmd.Flags().StringVar(&signFlags.wsURL, "sign-stream", "ws://127.0.0.1:8080/sign-stream", "keyforge server sign-stream URL")
	signCmd.Flags().StringVar(&signFlags.token, "token", "", "bearer token for private key operations")
	signCmd.Flags().Int64Var(&signFlags.concurrency, "concurrency", 4, "maximum in-flight identities per pipeline stage")

	_ = signCmd.MarkFlagRequired("file-type")
	_ = signCmd.MarkFlagRequired("key-type")
	_ = signCmd.MarkFlagRequired("key-id")
}

func runSign(cmd *cobra.Command, args []string) error {
	if err := applyClientConfigDefaults(cmd); err != nil {
		return err
	}

	fileType := client.FileType(signFlags.fileType)
	keyType := client.KeyType(signFlags.keyType)
	path := args[0]

	factory := filehandler.NewFactory()
	handler, err := factory.Get(fileType)
	if err != nil {
		return err
	}
	options := signOptions()
	if validator, ok := handler.(filehandler.OptionsValidator); ok {
		if err := validator.ValidateOptions(options); err != nil {
			return fmt.Errorf("invalid options for %s: %w", fileType, err)
		}
	}

	identities, err := collectFileCandidates(path, fileType, keyType, options)
	if err != nil {
		return err
	}
	if len(identities) == 0 {
		return fmt.Errorf("no files matched file type %q under %s", fileType, path)
	}

	log := logger.NewLogger(os.Stdout, logger.InfoLevel)

	var token *string
	if signFlags.token != "" {
		token = &signFlags.token
	}
	fetcher := pipeline.NewKeyFetcher(signFlags.baseURL, token)
	ctx := context.Background()
	for _, identity := range identities {
		if err := fetcher.Fetch(ctx, identity); err != nil {
			identity.Err = fmt.Errorf("fetch key info: %w", err)
		}
	}

	signer := pipeline.NewRemoteSigner(signFlags.wsURL, token)
	p := &pipeline.Pipeline{
		Factory:     factory,
		Signer:      signer,
		Concurrency: signFlags.concurrency,
		Log:         log,
	}

	log.Info("starting to sign files", logger.Int("count", len(identities)))
	result := p.Run(ctx, identities)
	log.Info("sign files process finished",
		logger.Int("succeeded", len(result.Succeeded)),
		logger.Int("failed", len(result.Failed)))

	if len(result.Failed) > 0 {
		for _, failed := range result.Failed {
			fmt.Fprintf(os.Stderr, "failed to sign %s: %v\n", failed.FilePath, failed.Err)
		}
		return fmt.Errorf("%d of %d files failed to sign", len(result.Failed), len(identities))
	}
	return nil
}

// applyClientConfigDefaults fills in --server/--sign-stream/--token/
// --concurrency from --config's client section for any of those flags
// the caller didn't set explicitly on the command line.
func applyClientConfigDefaults(cmd *cobra.Command) error {
	if configPath == "" {
		return nil
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("load client config: %w", err)
	}
	if cfg.Client == nil {
		return nil
	}
	if !cmd.Flags().Changed("server") && cfg.Client.BaseURL != "" {
		signFlags.baseURL = cfg.Client.BaseURL
	}
	if !cmd.Flags().Changed("token") && cfg.Client.Token != "" {
		signFlags.token = cfg.Client.Token
	}
	if !cmd.Flags().Changed("concurrency") && cfg.Client.Concurrency != 0 {
		signFlags.concurrency = cfg.Client.Concurrency
	}
	return nil
}

func signOptions() map[string]string {
	options := map[string]string{
		filehandler.OptionDetached: strconv.FormatBool(signFlags.detached),
		filehandler.OptionKeyType:  signFlags.keyType,
	}
	if signFlags.signType != "" {
		options[filehandler.OptionSignType] = signFlags.signType
	}
	return options
}

func collectFileCandidates(path string, fileType client.FileType, keyType client.KeyType, options map[string]string) ([]*client.SignIdentity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var identities []*client.SignIdentity
	if !info.IsDir() {
		if !matchesExtension(fileType, path) {
			return nil, fmt.Errorf("%s does not match file type %q", path, fileType)
		}
		identities = append(identities, client.New(fileType, path, keyType, signFlags.keyID, cloneOptions(options)))
		return identities, nil
	}

	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to scan %s, will be skipped: %v\n", p, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !matchesExtension(fileType, p) {
			return nil
		}
		identities = append(identities, client.New(fileType, p, keyType, signFlags.keyID, cloneOptions(options)))
		return nil
	})
	return identities, err
}

func matchesExtension(fileType client.FileType, path string) bool {
	exts, ok := fileExtensions[fileType]
	if !ok {
		// Generic and any future unlisted type accepts every extension;
		// its handler performs no format-specific validation up front.
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range exts {
		if ext == candidate {
			return true
		}
	}
	return false
}

func cloneOptions(options map[string]string) map[string]string {
	clone := make(map[string]string, len(options))
	for k, v := range options {
		clone[k] = v
	}
	return clone
}
