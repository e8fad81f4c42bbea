// Package config loads the application configuration from file and
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/skillverse/leadgen/internal/browser"
	"github.com/skillverse/leadgen/internal/scraper"
	"github.com/skillverse/leadgen/internal/store/sheets"
	"github.com/skillverse/leadgen/internal/whatsapp"
)

// Store backends.
const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Logging  LoggingConfig   `mapstructure:"logging"`
	Browser  browser.Config  `mapstructure:"browser"`
	Scraper  scraper.Config  `mapstructure:"scraper"`
	WhatsApp whatsapp.Config `mapstructure:"whatsapp"`
	Sheets   sheets.Config   `mapstructure:"sheets"`
	Postgres PostgresConfig  `mapstructure:"postgres"`
	Store    StoreConfig     `mapstructure:"store"`
}

// ServerConfig controls the HTTP control surface.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig selects the logger flavor.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// PostgresConfig carries the Postgres connection string.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// StoreConfig selects the lead store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
}

// Load reads configuration from the given file (optional) with LEADGEN_
// environment overrides layered on top.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engines cannot run with.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendSheets:
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("config: sheets backend needs sheets.spreadsheet_id")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: postgres backend needs postgres.dsn")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Scraper.MaxDelay < c.Scraper.MinDelay {
		return fmt.Errorf("config: scraper.max_delay must be >= scraper.min_delay")
	}
	if c.WhatsApp.MaxDelay < c.WhatsApp.MinDelay {
		return fmt.Errorf("config: whatsapp.max_delay must be >= whatsapp.min_delay")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("logging.development", false)

	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.nav_timeout", 30*time.Second)
	v.SetDefault("browser.user_data_dir", "whatsapp_session")

	v.SetDefault("store.backend", BackendSheets)
	v.SetDefault("sheets.sheet_name", "Sheet1")

	v.SetDefault("scraper.max_per_query", 10)
	v.SetDefault("scraper.stable_rounds", 5)
	v.SetDefault("scraper.min_delay", time.Second)
	v.SetDefault("scraper.max_delay", 2*time.Second)
	v.SetDefault("scraper.sub_pages", 3)
	v.SetDefault("scraper.http_timeout", 15*time.Second)
	v.SetDefault("scraper.keywords", defaultKeywords)
	v.SetDefault("scraper.relevance_keywords", defaultRelevanceKeywords)
	v.SetDefault("scraper.decision_maker_titles", defaultDecisionMakerTitles)
	v.SetDefault("scraper.locations", defaultLocations)

	v.SetDefault("whatsapp.min_delay", 4*time.Second)
	v.SetDefault("whatsapp.max_delay", 9*time.Second)
	v.SetDefault("whatsapp.region", "IN")
	v.SetDefault("whatsapp.min_phone_digits", 5)
	v.SetDefault("whatsapp.messages", defaultMessages)
}

// defaultKeywords targets active student communities and innovation groups,
// grouped by the category written to the lead's profession column.
var defaultKeywords = map[string][]string{
	"STUDENT_COMMUNITIES": {
		"Google Developer Student Club",
		"GDSC College",
		"IEEE Student Branch",
		"ACM Student Chapter",
		"Computer Society of India Student Chapter",
		"CSI Student Branch",
		"CodeChef College Chapter",
		"GeeksforGeeks Student Chapter",
	},
	"INNOVATION_HUBS": {
		"Center of Excellence Artificial Intelligence",
		"IoT and Robotics Lab College",
		"Incubation and Innovation Cell",
		"Startup Cell Engineering College",
		"Research and Development Cell College",
		"Technology Business Incubator",
	},
	"NICHE_TECH_GROUPS": {
		"Cloud Computing Club",
		"Cyber Security Club",
		"Data Analytics Club",
		"Blockchain Society College",
		"Metaverse Lab College",
		"Game Development Club College",
	},
	"PRIVATE_TECH_SCHOOLS": {
		"Software Finishing School",
		"Industrial Training Institute Computer",
		"Advanced Computing Training Center",
		"Summer Training Engineering Students",
		"Winter Training Institute",
	},
}

var defaultRelevanceKeywords = []string{
	"python", "java", "coding", "programming", "software", "developer",
	"artificial intelligence", "ai", "machine learning", "ml", "data science",
	"robotics", "automation", "tech", "innovation", "cloud", "cyber",
	"community", "society", "club", "chapter", "branch",
	"workshop", "seminar", "training", "course", "bootcamp",
	"student", "college", "institute", "placement", "skills",
}

var defaultDecisionMakerTitles = []string{
	"Faculty Advisor", "Faculty Coordinator", "Student Lead", "Chapter Lead",
	"President", "General Secretary", "Convenor",
	"HOD", "Head of Department",
	"Director", "Principal",
	"Incubation Manager",
}

var defaultLocations = []string{
	"Bangalore", "Pune", "Mumbai", "Hyderabad", "Delhi", "Chennai", "Kolkata",
	"Noida", "Gurgaon", "Ahmedabad",
	"Jaipur", "Lucknow", "Indore", "Chandigarh", "Bhopal", "Coimbatore",
	"Visakhapatnam", "Nagpur", "Kochi", "Thiruvananthapuram", "Bhubaneswar",
	"Dehradun", "Patna", "Ludhiana", "Agra", "Nashik", "Surat", "Vadodara",
}

var defaultMessages = []string{
	`Hi! Reaching out from SkillVerse.
We run a hands-on AI Agent Workshop where students build real AI agents, no coding required.
We are looking for partners and offer a commission for every enrollment.
Let me know if you are interested in a collaboration!`,

	`Hello! This is the partnerships team at SkillVerse.
We host live AI workshops with a premium certificate and lifetime access for participants.
We offer a commission-based partnership where you earn for every student who joins.
Reply if a collaboration sounds interesting.`,

	`Hi, hope you are doing well.
We conduct premium workshops covering zero-coding AI agents and automation.
There is a revenue-sharing opportunity: you receive a commission for every participant you refer.
Let me know if you would like to partner with us!`,
}
