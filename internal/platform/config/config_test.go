// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zaffranfoods/zaffran/internal/platform/config"
)

/*
TestConfig_AllowedOrigins verifies the comma-separated EXTRA_ORIGINS value
is split, trimmed, and empty entries dropped.
*/
func TestConfig_AllowedOrigins(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		value string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "https://staging.example.net", []string{"https://staging.example.net"}},
		{"multiple_with_spaces", "https://a.example.net, https://b.example.net", []string{"https://a.example.net", "https://b.example.net"}},
		{"trailing_comma", "https://a.example.net,", []string{"https://a.example.net"}},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			cfg := &config.Config{ExtraOrigins: testCase.value}
			assert.Equal(t, testCase.want, cfg.AllowedOrigins())
		})
	}
}
