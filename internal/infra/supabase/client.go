package supabase

import (
	"fmt"

	"github.com/supabase-community/supabase-go"

	"chat-assistant-server/internal/domain"
)

// SupabaseClient implements the domain.SupabaseClient interface
type SupabaseClient struct {
	client *supabase.Client
	config domain.Config
	logger domain.Logger
}

// NewSupabaseClient creates a new Supabase client instance
func NewSupabaseClient(config domain.Config, logger domain.Logger) domain.SupabaseClient {
	return &SupabaseClient{
		config: config,
		logger: logger,
	}
}

func (s *SupabaseClient) DB() *supabase.Client {
	return s.client
}

// Initialize establishes a connection to Supabase
func (s *SupabaseClient) Initialize() error {
	supabaseURL := s.config.GetSupabaseURL()
	supabaseKey := s.config.GetSupabaseKey()

	if supabaseURL == "" || supabaseKey == "" {
		return fmt.Errorf("supabase URL and key must be provided")
	}

	client, err := supabase.NewClient(supabaseURL, supabaseKey, &supabase.ClientOptions{})
	if err != nil {
		return fmt.Errorf("failed to create Supabase client: %w", err)
	}

	s.client = client
	s.logger.Info("Supabase client initialized successfully", "url", supabaseURL)
	return nil
}

// ValidateToken asks Supabase Auth who owns the access token.
func (s *SupabaseClient) ValidateToken(token string) (*domain.Identity, error) {
	if s.client == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}

	// Auth headers set on the shared client do not reach GoTrue; use a scoped auth client.
	user, err := s.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	identity := &domain.Identity{
		ID:    user.ID.String(),
		Email: user.Email,
	}
	if name, ok := user.UserMetadata["full_name"].(string); ok {
		identity.Name = name
	} else if name, ok := user.UserMetadata["name"].(string); ok {
		identity.Name = name
	}
	return identity, nil
}
