package text

import "server/internal/domain"

func providerErr(provider, message string) error {
	return &domain.ProviderError{Provider: provider, Message: message}
}
