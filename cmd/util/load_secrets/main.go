package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/dixieflatline76/ProductScene/config"
)

func main() {
	secretFile := ".productscene_secrets"
	if len(os.Args) > 1 {
		secretFile = os.Args[1]
	}

	// Mapping from secrets file keys to keyring accounts
	keyMap := map[string]string{
		"OPENROUTER_API_KEY": config.ProviderKeyName,
		"GEMINI_API_KEY":     config.VideoKeyName,
	}

	collected := make(map[string]string)

	// 1. Load from environment first (CI path)
	for key, account := range keyMap {
		if val := os.Getenv(key); val != "" {
			collected[account] = trimValue(val)
		}
	}

	// 2. Overlay from the secrets file (Local path)
	if file, err := os.Open(secretFile); err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			if account, ok := keyMap[key]; ok {
				collected[account] = trimValue(parts[1])
			}
		}
	}

	if len(collected) == 0 {
		fmt.Fprintf(os.Stderr, "no secrets found in the environment or %s\n", secretFile)
		os.Exit(1)
	}
	for account, value := range collected {
		if err := config.SetAPIKey(account, value); err != nil {
			fmt.Fprintf(os.Stderr, "failed to store %s: %v\n", account, err)
			os.Exit(1)
		}
		fmt.Printf("stored %s in the %s keyring\n", account, config.ServiceName)
	}
}

func trimValue(s string) string {
	s = strings.TrimSpace(s)
	// Remove surrounding quotes if present
	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		s = s[1 : len(s)-1]
	}
	return s
}
