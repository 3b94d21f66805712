package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RecaptchaEndpoint bisa diganti di test
var RecaptchaEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// RecaptchaMinScore - skor v3 di bawah ini dianggap bot
const RecaptchaMinScore = 0.5

type RecaptchaResponse struct {
	Success bool    `json:"success"`
	Score   float64 `json:"score"`
	Action  string  `json:"action"`
}

var recaptchaClient = &http.Client{Timeout: 5 * time.Second}

func VerifyRecaptcha(ctx context.Context, secret, token string) (bool, float64, error) {
	data := url.Values{}
	data.Set("secret", secret)
	data.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, RecaptchaEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return false, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := recaptchaClient.Do(req)
	if err != nil {
		return false, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, 0, fmt.Errorf("recaptcha: status %d", resp.StatusCode)
	}

	var result RecaptchaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, 0, err
	}

	return result.Success, result.Score, nil
}
