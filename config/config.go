package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds the application's configuration values.
type Config struct {
	AppName   string `json:"appname"`
	AppEnv    string `json:"appenv"`
	AppPort   uint16 `json:"appport"`
	GinMode   string `json:"ginmode"`
	DBHost    string `json:"dbhost"`
	DBPort    uint16 `json:"dbport"`
	DBName    string `json:"dbname"`
	DBUser    string `json:"dbuser"`
	DBPass    string `json:"dbpass"`
	MediaRoot string `json:"mediaroot"`
	SMTPHost  string `json:"smtphost"`
	SMTPPort  int    `json:"smtpport"`
	SMTPUser  string `json:"smtpuser"`
	SMTPPass  string `json:"-"`
	EmailFrom string `json:"emailfrom"`
	APIToken  string `json:"-"`
}

var config *Config
var once sync.Once

// LoadConfig loads environment variables from a .env file when present and
// returns a singleton Config instance. A missing .env file is not an error;
// containerized deployments pass the environment directly.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file loaded: %v", err)
		}

		appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
		dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)
		smtpPort, _ := strconv.Atoi(os.Getenv("SMTPPORT"))

		mediaRoot := os.Getenv("MEDIAROOT")
		if mediaRoot == "" {
			mediaRoot = "media"
		}

		config = &Config{
			AppName:   os.Getenv("APPNAME"),
			AppEnv:    os.Getenv("APPENV"),
			AppPort:   uint16(appPort),
			GinMode:   os.Getenv("GINMODE"),
			DBHost:    os.Getenv("DBHOST"),
			DBPort:    uint16(dbPort),
			DBName:    os.Getenv("DBNAME"),
			DBUser:    os.Getenv("DBUSER"),
			DBPass:    os.Getenv("DBPASS"),
			MediaRoot: mediaRoot,
			SMTPHost:  os.Getenv("SMTPHOST"),
			SMTPPort:  smtpPort,
			SMTPUser:  os.Getenv("SMTPUSER"),
			SMTPPass:  os.Getenv("SMTPPASS"),
			EmailFrom: os.Getenv("EMAILFROM"),
			APIToken:  os.Getenv("APITOKEN"),
		}
	})
	return config
}

// ConnectDB opens the application database. In the test environment it
// returns an in-memory SQLite database so tests never need a MySQL server;
// otherwise it connects to MySQL using the configured credentials.
// TranslateError maps driver duplicate-key errors to gorm.ErrDuplicatedKey,
// which the booking path relies on.
func ConnectDB() (*gorm.DB, error) {
	cfg := LoadConfig()

	if cfg.AppEnv == "test" {
		return gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{TranslateError: true})
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	return gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
}
