package config

import (
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testConfig = `
logger:
  log_level: INFO
  output_file: ./logs/errors.log
bot:
  token: fileToken
  admin_password_hash: fileHash
ai:
  key: fileKey
  max_requests_per_minute: 10
  max_requests_per_day: 1000
db:
  connection_string: file.db
outreach:
  send_delay: 3s
responses:
  check_schedule: "0 */2 * * *"
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func Test_Config_WhenFileIsValid_ShouldApplyDefaults(t *testing.T) {
	viper.Reset()
	assert := assert.New(t)

	cfg, err := loadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal("fileToken", cfg.Bot.Token)
	assert.Equal(DriverSqlite, cfg.DB.Driver)
	assert.Equal("gemini-1.5-flash", cfg.AI.Model)
	assert.Equal(3*time.Second, cfg.Outreach.SendDelay)
	assert.Equal(30*time.Second, cfg.Outreach.BrowserTimeout)
	assert.True(cfg.Outreach.Headless)
	assert.Equal(8080, cfg.Metrics.Port)
	assert.Equal("0 */2 * * *", cfg.Responses.CheckSchedule)
}

func Test_Config_WhenEnvironmentIsSet_ShouldOverrideFile(t *testing.T) {
	viper.Reset()
	assert := assert.New(t)

	t.Setenv("TOKEN", "envToken")
	t.Setenv("AI_KEY", "envKey")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_CONNECTION_STRING", "host=localhost")
	t.Setenv("OUTREACH_SEND_DELAY", "5s")

	cfg, err := loadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal("envToken", cfg.Bot.Token)
	assert.Equal("envKey", cfg.AI.Key)
	assert.Equal(DriverPostgres, cfg.DB.Driver)
	assert.Equal("host=localhost", cfg.DB.ConnectionString)
	assert.Equal(5*time.Second, cfg.Outreach.SendDelay)
}

func Test_Config_WhenRequiredMissing_ShouldReturnError(t *testing.T) {
	viper.Reset()

	_, err := loadConfig(writeConfig(t, "logger:\n  log_level: INFO\n"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "token")
	assert.Contains(t, err.Error(), "connection string")
}

func Test_DBConfig_WhenDriverUnknown_ShouldFailValidation(t *testing.T) {
	err := DBConfig{Driver: "mysql", ConnectionString: "x"}.validate()
	assert.Error(t, err)
}
