/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"golang.org/x/oauth2"
)

// TokenHTTPClient returns an HTTP client authenticating with a personal or
// fine-grained access token.
func TokenHTTPClient(ctx context.Context, token string) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

// AppHTTPClient returns an HTTP client authenticating as a GitHub App
// installation. Installation tokens are minted and refreshed by the transport.
func AppHTTPClient(appID, installationID int64, privateKeyPath string) (*http.Client, error) {
	tr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, appID, installationID, privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("loading GitHub App key: %w", err)
	}
	return &http.Client{Transport: tr}, nil
}

func encodeBase64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
