// Package labels exports printable code image sheets for onboarded assets as
// a signed tar.zst archive.
package labels

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"assetd/pkg/qrcode"
	"assetd/pkg/render"
)

const (
	manifestFileName = "manifest.yaml"
	sheetFileName    = "index.html"
	sheetTemplate    = "label_sheet.html"
	imagesTarPrefix  = "labels"

	// maxEntrySize bounds any single archive member read during Verify.
	maxEntrySize = 8 << 20
)

// ImageGenerator renders the code image for one asset.
type ImageGenerator interface {
	Generate(code, payload string) (qrcode.Image, error)
}

// ExportConfig configures Export.
type ExportConfig struct {
	Source      Source
	Images      ImageGenerator
	ScanBaseURL string
	Location    string
	Output      string
	Signer      *Signer
	Now         func() time.Time
	Stdout      io.Writer
}

// Export regenerates the code image of every labelled asset and writes them
// with a manifest and a printable HTML sheet to cfg.Output. The manifest is
// signed when cfg.Signer holds a secret key.
func Export(ctx context.Context, cfg ExportConfig) (*Manifest, error) {
	if cfg.Source == nil {
		return nil, errors.New("source is required")
	}
	if cfg.Images == nil {
		return nil, errors.New("image generator is required")
	}
	base := strings.TrimSuffix(strings.TrimSpace(cfg.ScanBaseURL), "/")
	if base == "" {
		return nil, errors.New("scan base url is required")
	}
	if cfg.Output == "" {
		return nil, errors.New("output path is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}

	rows, err := cfg.Source.Labelled(ctx, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("list labelled assets: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("no labelled assets to export")
	}

	manifest := &Manifest{
		Version:     manifestVersion,
		CreatedAt:   cfg.Now().UTC().Truncate(time.Second),
		ScanBaseURL: base,
		Labels:      make([]Label, 0, len(rows)),
	}
	images := make(map[string][]byte, len(rows))

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		payload := base + "/" + row.Code
		img, err := cfg.Images.Generate(row.Code, payload)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", row.Code, err)
		}
		file := path.Join(imagesTarPrefix, img.Name)
		if _, dup := images[file]; dup {
			return nil, fmt.Errorf("duplicate label file %q", file)
		}
		sum := sha256.Sum256(img.Data)
		images[file] = img.Data
		manifest.Labels = append(manifest.Labels, Label{
			Code:     row.Code,
			Name:     row.Name,
			Location: row.Location,
			Locator:  row.QRLocator,
			Payload:  payload,
			File:     file,
			Size:     int64(len(img.Data)),
			SHA256:   hex.EncodeToString(sum[:]),
		})
	}

	if cfg.Signer.canSign() {
		manifest.Signer = cfg.Signer.Recipient()
		manifest.SigningPublicKey = cfg.Signer.PublicKeyBase64()
		payload, err := manifest.SigningBytes()
		if err != nil {
			return nil, fmt.Errorf("marshal manifest for signing: %w", err)
		}
		if manifest.Signature, err = cfg.Signer.Sign(payload); err != nil {
			return nil, fmt.Errorf("sign manifest: %w", err)
		}
	}

	manifestBytes, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	engine, err := render.New()
	if err != nil {
		return nil, err
	}
	sheet, err := engine.Render(sheetTemplate, manifest)
	if err != nil {
		return nil, fmt.Errorf("render label sheet: %w", err)
	}
	if err := writeArchive(cfg.Output, manifestBytes, sheet, manifest, images, manifest.CreatedAt); err != nil {
		return nil, err
	}

	fmt.Fprintf(cfg.Stdout, "wrote %s (%d labels)\n", cfg.Output, len(manifest.Labels))
	return manifest, nil
}

// writeArchive stores the manifest first, then the optional printable sheet,
// then the images in manifest order.
func writeArchive(output string, manifestBytes, sheet []byte, m *Manifest, images map[string][]byte, modTime time.Time) (err error) {
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	encoder, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	tw := tar.NewWriter(encoder)

	write := func(name string, data []byte) error {
		hdr := &tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(data)),
			ModTime:  modTime,
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write header for %q: %w", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("write %q: %w", name, err)
		}
		return nil
	}

	if err := write(manifestFileName, manifestBytes); err != nil {
		return err
	}
	if sheet != nil {
		if err := write(sheetFileName, sheet); err != nil {
			return err
		}
	}
	for _, label := range m.Labels {
		if err := write(label.File, images[label.File]); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("close zstd: %w", err)
	}
	return nil
}

// Verify reads an export, checks every label against the manifest and, when
// the manifest is signed, its signature. A non-nil signer makes a signature
// mandatory.
func Verify(ctx context.Context, archivePath string, signer *Signer) (*Manifest, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer file.Close()

	decoder, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer decoder.Close()

	var (
		manifestBytes []byte
		files         = map[string][]byte{}
	)
	tr := tar.NewReader(decoder)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if hdr.Size > maxEntrySize {
			return nil, fmt.Errorf("entry %q exceeds %d bytes", hdr.Name, maxEntrySize)
		}
		data, err := io.ReadAll(io.LimitReader(tr, maxEntrySize))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", hdr.Name, err)
		}
		name := path.Clean(hdr.Name)
		if name == manifestFileName {
			manifestBytes = data
			continue
		}
		files[name] = data
	}

	if len(manifestBytes) == 0 {
		return nil, errors.New("archive missing " + manifestFileName)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if manifest.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %q", manifest.Version)
	}

	switch {
	case manifest.Signature != "":
		payload, err := manifest.SigningBytes()
		if err != nil {
			return nil, fmt.Errorf("marshal manifest for verification: %w", err)
		}
		if err := signer.Verify(payload, manifest.Signature, manifest.SigningPublicKey); err != nil {
			return nil, fmt.Errorf("verify manifest signature: %w", err)
		}
	case signer != nil:
		return nil, errors.New("manifest is not signed")
	}

	for _, label := range manifest.Labels {
		data, ok := files[path.Clean(label.File)]
		if !ok {
			return nil, fmt.Errorf("label %q missing from archive", label.File)
		}
		if int64(len(data)) != label.Size {
			return nil, fmt.Errorf("size mismatch for %q: expected %d got %d", label.File, label.Size, len(data))
		}
		sum := sha256.Sum256(data)
		if !strings.EqualFold(hex.EncodeToString(sum[:]), label.SHA256) {
			return nil, fmt.Errorf("sha256 mismatch for %q", label.File)
		}
	}
	return &manifest, nil
}
