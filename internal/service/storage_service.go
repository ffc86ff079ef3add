package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-assistant-server/internal/domain"
)

// maxImageBytes caps how much of a generated image is copied.
const maxImageBytes = 10 << 20

// SupabaseStorage archives generated images in a public Supabase Storage
// bucket. Provider image URLs expire, the archived copy does not.
type SupabaseStorage struct {
	baseURL    string
	apiKey     string
	bucket     string
	httpClient *http.Client
	logger     domain.Logger
}

func NewStorageService(
	baseURL string,
	apiKey string,
	bucket string,
	logger domain.Logger,
) *SupabaseStorage {
	return &SupabaseStorage{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Store downloads sourceURL and uploads it under generated/<uuid>.
func (s *SupabaseStorage) Store(ctx context.Context, sourceURL string) (string, error) {
	body, contentType, err := s.download(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	path := "generated/" + uuid.NewString() + extensionFor(contentType)
	if err := s.upload(ctx, path, body, contentType); err != nil {
		return "", err
	}
	return s.publicURL(path), nil
}

func (s *SupabaseStorage) download(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid image url: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func (s *SupabaseStorage) upload(ctx context.Context, path string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/storage/v1/object/"+url.PathEscape(s.bucket)+"/"+path,
		bytes.NewReader(data),
	)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storage upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("storage upload failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (s *SupabaseStorage) publicURL(path string) string {
	return s.baseURL + "/storage/v1/object/public/" + url.PathEscape(s.bucket) + "/" + path
}

func extensionFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/png"):
		return ".png"
	case strings.HasPrefix(contentType, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(contentType, "image/webp"):
		return ".webp"
	default:
		return ""
	}
}

// ArchivingResponder stores generated images before handing them back.
// Archive failures keep the provider URL.
type ArchivingResponder struct {
	domain.Responder
	store  domain.ImageStore
	logger domain.Logger
}

func NewArchivingResponder(inner domain.Responder, store domain.ImageStore, logger domain.Logger) *ArchivingResponder {
	return &ArchivingResponder{Responder: inner, store: store, logger: logger}
}

func (r *ArchivingResponder) GenerateImage(ctx context.Context, prompt string) (*domain.Reply, error) {
	reply, err := r.Responder.GenerateImage(ctx, prompt)
	if err != nil || reply == nil || reply.ImageURL == "" {
		return reply, err
	}

	archived, err := r.store.Store(ctx, reply.ImageURL)
	if err != nil {
		r.logger.Warn("Failed to archive generated image", "error", err)
		return reply, nil
	}
	reply.ImageURL = archived
	return reply, nil
}
