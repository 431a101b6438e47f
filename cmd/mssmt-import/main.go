// Command mssmt-import builds an mssmt tree from a YAML list of records and
// prints a checkpoint of the resulting root, signed when -key-file is given.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/pem"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/mod/sumdb/note"
	"gopkg.in/yaml.v3"

	"github.com/lightcone-labs/mssmt/checkpoint"
	"github.com/lightcone-labs/mssmt/mssmt"
	"github.com/lightcone-labs/mssmt/mssmt/sqlitestore"
)

var (
	dbFlag      = flag.String("db", "mssmt.db", "path to the sqlite database to build the tree in")
	originFlag  = flag.String("origin", "", "checkpoint origin line (e.g. example.com/mssmt)")
	inputFlag   = flag.String("input", "", "path to a YAML file listing records to insert")
	keyFileFlag = flag.String("key-file", "", "PEM file holding an Ed25519 private key to sign the checkpoint; if empty, the checkpoint is printed unsigned")
	configFlag  = flag.String("config", "", "optional YAML file overriding the flags above")
)

// record is one (key, value, sum) triple from the input file.
type record struct {
	Key   string `yaml:"key"`   // hex-encoded, 32 bytes
	Value string `yaml:"value"` // hex-encoded
	Sum   uint64 `yaml:"sum"`
}

type fileConfig struct {
	DB      string `yaml:"db"`
	Origin  string `yaml:"origin"`
	Input   string `yaml:"input"`
	KeyFile string `yaml:"key_file"`
}

func main() {
	flag.Parse()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(context.Background()); err != nil {
		slog.Error("import failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	db, origin, input, keyFile := *dbFlag, *originFlag, *inputFlag, *keyFileFlag
	if *configFlag != "" {
		cfg, err := loadFileConfig(*configFlag)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}
		if cfg.DB != "" {
			db = cfg.DB
		}
		if cfg.Origin != "" {
			origin = cfg.Origin
		}
		if cfg.Input != "" {
			input = cfg.Input
		}
		if cfg.KeyFile != "" {
			keyFile = cfg.KeyFile
		}
	}
	if origin == "" || input == "" {
		return fmt.Errorf("both -origin and -input are required")
	}

	records, err := loadRecords(input)
	if err != nil {
		return fmt.Errorf("reading records: %w", err)
	}
	slog.Info("loaded records", "count", len(records), "input", input)

	store, err := sqlitestore.New(ctx, db, mssmt.DefaultHash)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	tree := mssmt.NewCompact(store)

	bar := pb.StartNew(len(records))
	defer bar.Finish()
	for _, r := range records {
		key, value, err := r.decode()
		if err != nil {
			return fmt.Errorf("decoding record: %w", err)
		}
		leaf := mssmt.NewLeafNode(mssmt.DefaultHash, value, r.Sum)
		if err := tree.Insert(ctx, key, leaf); err != nil {
			return fmt.Errorf("inserting key %x: %w", key, err)
		}
		bar.Increment()
	}

	root, err := tree.Root(ctx)
	if err != nil {
		return fmt.Errorf("reading root: %w", err)
	}

	cp := checkpoint.Checkpoint{
		Origin:    origin,
		LeafCount: uint64(len(records)),
		RootHash:  root.NodeHash(),
		RootSum:   root.NodeSum(),
	}
	slog.Info("import complete", "root_hash", hex.EncodeToString(cp.RootHash[:]), "root_sum", cp.RootSum)

	if keyFile == "" {
		fmt.Print(cp.String())
		return nil
	}

	signer, err := loadSigner(origin, keyFile)
	if err != nil {
		return fmt.Errorf("loading signing key: %w", err)
	}
	signed, err := note.Sign(&note.Note{Text: cp.String()}, signer)
	if err != nil {
		return fmt.Errorf("signing checkpoint: %w", err)
	}
	fmt.Print(string(signed))
	return nil
}

func (r record) decode() (mssmt.Key, []byte, error) {
	keyBytes, err := hex.DecodeString(r.Key)
	if err != nil || len(keyBytes) != mssmt.KeySize {
		return mssmt.Key{}, nil, fmt.Errorf("key must be %d hex-encoded bytes", mssmt.KeySize)
	}
	value, err := hex.DecodeString(r.Value)
	if err != nil {
		return mssmt.Key{}, nil, fmt.Errorf("value must be hex-encoded: %w", err)
	}
	var key mssmt.Key
	copy(key[:], keyBytes)
	return key, value, nil
}

func loadRecords(path string) ([]record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, err
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, err
	}
	return cfg, nil
}

func loadSigner(origin, keyFile string) (*checkpoint.Signer, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil || len(block.Bytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%s does not hold a raw Ed25519 private key", keyFile)
	}
	key := ed25519.PrivateKey(block.Bytes)
	return checkpoint.NewSigner(origin, key)
}
