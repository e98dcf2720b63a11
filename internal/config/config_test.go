package config

import (
    "testing"
    "time"
)

func TestLoadThresholds_EnvOverrides(t *testing.T) {
    t.Setenv("THRESH_HIGH_BUG_RATE", "0.4")
    t.Setenv("THRESH_TOP_PERFORMER_Z", "not-a-number")
    th := loadThresholds()
    if th.HighBugRate != 0.4 { t.Fatalf("override ignored: %v", th.HighBugRate) }
    // bad values fall back to the default silently
    if th.TopPerformerZ != 1.0 { t.Fatalf("bad override must keep default: %v", th.TopPerformerZ) }
    if th.ReviseRatePenalty != 0.5 { t.Fatalf("untouched field changed: %v", th.ReviseRatePenalty) }
}

func TestParseInt64s(t *testing.T) {
    ids := parseInt64s("123, -456,, junk ,789")
    if len(ids) != 3 || ids[0] != 123 || ids[1] != -456 || ids[2] != 789 {
        t.Fatalf("ids = %v", ids)
    }
    if parseInt64s("") != nil { t.Fatalf("empty input must yield nil") }
}

func TestDur(t *testing.T) {
    t.Setenv("X_TIMEOUT", "250ms")
    if got := dur("X_TIMEOUT", time.Second); got != 250*time.Millisecond { t.Fatalf("dur = %v", got) }
    t.Setenv("X_TIMEOUT", "soon")
    if got := dur("X_TIMEOUT", time.Second); got != time.Second { t.Fatalf("bad value must keep default: %v", got) }
}

func TestLoad_UsernameFallback(t *testing.T) {
    t.Setenv("TELEGRAM_CHAT_IDS", "@eng_managers")
    cfg := Load()
    if len(cfg.TelegramChatIDs) != 0 { t.Fatalf("non-numeric ids must not parse: %v", cfg.TelegramChatIDs) }
    if len(cfg.TelegramChatUsernames) != 1 || cfg.TelegramChatUsernames[0] != "@eng_managers" {
        t.Fatalf("usernames = %v", cfg.TelegramChatUsernames)
    }
}
