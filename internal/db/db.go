package db

import (
	"log"
	"os"
	"strings"
	"uolink/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init 建立数据库连接并执行迁移
// DATABASE_URL 以 postgres:// 开头走 PostgreSQL，以 sqlite:// 开头走本地 SQLite
func Init() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// Fallback for local dev if not set
		dbURL = "sqlite://uolink.db"
		log.Println("DATABASE_URL not set, defaulting to 'sqlite://uolink.db'")
	}

	var dialector gorm.Dialector
	if strings.HasPrefix(dbURL, "postgres://") {
		dialector = postgres.Open(dbURL)
		log.Println("Connecting to PostgreSQL database...")
	} else if strings.HasPrefix(dbURL, "sqlite://") {
		dsn := strings.TrimPrefix(dbURL, "sqlite://")
		dialector = sqlite.Open(dsn)
		log.Println("Connecting to SQLite database at", dsn)
	} else {
		log.Fatalf("Invalid DATABASE_URL prefix. Must start with 'postgres://' or 'sqlite://'")
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Database connection established")

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")
}

// Migrate 执行全部模型迁移，测试里也用它初始化内存库
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Item{},
		&models.VoteRecord{},
		&models.SaveRecord{},
		&models.IndexEntry{},
		&models.Comment{},
		&models.Report{},
		&models.ReputationLog{},
	)
}
