package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/you/lp-tools/internal/config"
)

// setupTelegram спрашивает недостающие креды Telegram и сохраняет их в .env.
// Пустой ответ оставляет уведомления выключенными.
func setupTelegram(cfg *config.Config, in io.Reader, out io.Writer) error {
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		return nil
	}
	fmt.Fprintln(out, "--- Telegram Notifications Setup ---")
	sc := bufio.NewScanner(in)
	ask := func(label string) string {
		fmt.Fprint(out, label)
		if !sc.Scan() {
			return ""
		}
		return strings.TrimSpace(sc.Text())
	}

	kv := map[string]string{}
	if cfg.Telegram.BotToken == "" {
		if v := ask("Enter your Telegram bot token (leave empty to skip): "); v != "" {
			kv["TELEGRAM_BOT_TOKEN"] = v
		}
	}
	if cfg.Telegram.ChatID == "" {
		if v := ask("Enter your Telegram chat ID (leave empty to skip): "); v != "" {
			kv["TELEGRAM_CHAT_ID"] = v
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if len(kv) == 0 {
		fmt.Fprintln(out, "Telegram notifications disabled.")
		return nil
	}
	if err := config.SaveEnv(cfg.EnvFile, kv); err != nil {
		return err
	}
	if v, ok := kv["TELEGRAM_BOT_TOKEN"]; ok {
		cfg.Telegram.BotToken = v
	}
	if v, ok := kv["TELEGRAM_CHAT_ID"]; ok {
		cfg.Telegram.ChatID = v
	}
	fmt.Fprintf(out, "Telegram credentials saved to %s\n", cfg.EnvFile)
	return nil
}
