package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/cli"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/auth"
)

var (
	ErrKeyIDRequired  = errors.New("key ID is required")
	ErrInvalidKeySize = errors.New("key size must be 2048, 3072, or 4096")
)

// Command implements the keys management command
type Command struct{}

func (c *Command) Name() string {
	return "keys"
}

func (c *Command) Description() string {
	return "Manage token signing keys (generate, list, set-active)"
}

func (c *Command) Run(args []string) error {
	if len(args) < 1 {
		c.printUsage()
		return fmt.Errorf("subcommand required")
	}

	subcmd := args[0]
	switch subcmd {
	case "generate":
		return c.runGenerate(args[1:])
	case "list":
		return c.runList(args[1:])
	case "set-active":
		return c.runSetActive(args[1:])
	default:
		c.printUsage()
		return fmt.Errorf("unknown subcommand: %s", subcmd)
	}
}

func (c *Command) printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: attendance-cli keys <subcommand> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  generate              Generate a new RSA key pair\n")
	fmt.Fprintf(os.Stderr, "    -kid <id>           Key ID (required)\n")
	fmt.Fprintf(os.Stderr, "    -bits <size>        Key size: 2048, 3072, or 4096 (default: 2048)\n")
	fmt.Fprintf(os.Stderr, "    -path <dir>         Custom keys directory (overrides config)\n")
	fmt.Fprintf(os.Stderr, "  list                  List all available keys\n")
	fmt.Fprintf(os.Stderr, "  set-active <kid>      Check a key ID and print the config change\n")
}

// keysPath returns override when set, otherwise the configured directory
func keysPath(override string) (string, string, error) {
	if override != "" {
		return override, "", nil
	}
	cfg, err := cli.LoadConfig()
	if err != nil {
		return "", "", err
	}
	return cfg.Auth.KeysPath, cfg.Auth.ActiveKID, nil
}

func (c *Command) runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	kid := fs.String("kid", "", "Key ID (required)")
	bits := fs.Int("bits", 2048, "Key size in bits (2048, 3072, or 4096)")
	customPath := fs.String("path", "", "Custom keys directory path (overrides config)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	path, _, err := keysPath(*customPath)
	if err != nil {
		return err
	}
	return GenerateKey(os.Stdout, path, *kid, *bits)
}

func (c *Command) runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	customPath := fs.String("path", "", "Custom keys directory path (overrides config)")
	active := fs.String("active", "", "Active key ID to highlight (overrides config)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	path, activeKID, err := keysPath(*customPath)
	if err != nil {
		return err
	}
	if *active != "" {
		activeKID = *active
	}
	return ListKeys(os.Stdout, path, activeKID)
}

func (c *Command) runSetActive(args []string) error {
	if len(args) < 1 {
		return ErrKeyIDRequired
	}

	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	return SetActiveKey(os.Stdout, cfg.Auth.KeysPath, args[0])
}

// GenerateKey writes private-<kid>.pem and public-<kid>.pem into dir.
// An existing pair with the same kid is never overwritten.
func GenerateKey(out io.Writer, dir, kid string, bits int) error {
	if strings.TrimSpace(kid) == "" {
		return ErrKeyIDRequired
	}
	if bits != 2048 && bits != 3072 && bits != 4096 {
		return ErrInvalidKeySize
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create keys directory: %w", err)
	}

	privPath := filepath.Join(dir, fmt.Sprintf("private-%s.pem", kid))
	pubPath := filepath.Join(dir, fmt.Sprintf("public-%s.pem", kid))

	if _, err := os.Stat(privPath); err == nil {
		return fmt.Errorf("key with ID %s already exists at %s", kid, privPath)
	}

	fmt.Fprintf(out, "Generating %d-bit RSA key pair...\n", bits)
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return fmt.Errorf("failed to generate RSA key: %w", err)
	}

	privateKeyPEM := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}
	if err := writePEM(privPath, privateKeyPEM, 0600); err != nil {
		return err
	}

	publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return err
	}
	publicKeyPEM := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicKeyBytes,
	}
	if err := writePEM(pubPath, publicKeyPEM, 0644); err != nil {
		_ = os.Remove(privPath)
		return err
	}

	fmt.Fprintf(out, "Key pair generated successfully\n")
	fmt.Fprintf(out, "  Key ID: %s\n", kid)
	return nil
}

func writePEM(path string, block *pem.Block, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if err := pem.Encode(f, block); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ListKeys prints every key pair in dir, marking the active one
func ListKeys(out io.Writer, dir, activeKID string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("keys directory invalid: %s", dir)
	}

	keyStore, err := auth.LoadKeys(dir, activeKID)
	if err != nil {
		return fmt.Errorf("failed to load keys: %w", err)
	}

	keySet := keyStore.JWKS()
	if keySet.Len() == 0 {
		fmt.Fprintf(out, "No keys found in %s\n", dir)
		return nil
	}

	fmt.Fprintf(out, "Keys in %s:\n\n", dir)
	normalizedActiveKID := auth.NormalizeKeyID(activeKID)

	for i := 0; i < keySet.Len(); i++ {
		key, ok := keySet.Key(i)
		if !ok {
			continue
		}

		kid, _ := key.KeyID()
		active := ""
		if kid == normalizedActiveKID {
			active = " (ACTIVE)"
		}
		keyID := strings.TrimPrefix(kid, "key-")

		var rawKey any
		if err := jwk.Export(key, &rawKey); err != nil {
			fmt.Fprintf(out, "  %s: skipped (export failed: %v)\n", kid, err)
			continue
		}
		rsaKey, ok := rawKey.(*rsa.PublicKey)
		if !ok {
			fmt.Fprintf(out, "  %s: skipped (not an RSA key)\n", kid)
			continue
		}
		fmt.Fprintf(out, "  %s%s\n", kid, active)
		fmt.Fprintf(out, "    Key size: %d bits\n", rsaKey.N.BitLen())
		fmt.Fprintf(out, "    Private:  private-%s.pem\n", keyID)
		fmt.Fprintf(out, "    Public:   public-%s.pem\n", keyID)
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "Active KID: %s\n", activeKID)
	return nil
}

// SetActiveKey checks that kid exists in dir and prints the config change.
// The config file itself is left to the operator.
func SetActiveKey(out io.Writer, dir, kid string) error {
	keyStore, err := auth.LoadKeys(dir, kid)
	if err != nil {
		return err
	}

	if _, err := keyStore.GetActiveKey(); err != nil {
		return fmt.Errorf("key with ID %s not found", kid)
	}

	fmt.Fprintf(out, "To set active key, update config.yaml:\n\n")
	fmt.Fprintf(out, "  auth:\n")
	fmt.Fprintf(out, "    active_kid: %s\n", kid)
	return nil
}
