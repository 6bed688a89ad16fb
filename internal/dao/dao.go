package dao

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/haierkeys/artifact-git-sync/internal/model"
	"github.com/haierkeys/artifact-git-sync/pkg/fileurl"
	"github.com/haierkeys/artifact-git-sync/pkg/util"
	"github.com/haierkeys/artifact-git-sync/pkg/writequeue"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// writeKey sqlite 写操作共用的写队列 key
const writeKey = "dao#sqlite"

// Config 数据库配置
type Config struct {
	// Type 数据库类型 sqlite | mysql | postgres
	Type string `yaml:"type" default:"sqlite"`
	// Path SQLite 数据库文件路径
	Path string `yaml:"path" default:"storage/database/db.sqlite3"`
	// UserName 用户名
	UserName string `yaml:"username"`
	// Password 密码
	Password string `yaml:"password"`
	// Host 主机
	Host string `yaml:"host"`
	// Port 端口（postgres）
	Port int `yaml:"port" default:"5432"`
	// Name 数据库名
	Name string `yaml:"name"`
	// TablePrefix 表前缀
	TablePrefix string `yaml:"table-prefix"`
	// AutoMigrate 是否启用自动迁移
	AutoMigrate bool `yaml:"auto-migrate" default:"true"`
	// Charset 字符集
	Charset string `yaml:"charset" default:"utf8mb4"`
	// ParseTime 是否解析时间
	ParseTime bool `yaml:"parse-time" default:"true"`
	// SSLMode postgres sslmode
	SSLMode string `yaml:"ssl-mode" default:"disable"`
	// MaxIdleConns 最大闲置连接数，默认 10
	MaxIdleConns int `yaml:"max-idle-conns" default:"10"`
	// MaxOpenConns 最大打开连接数，默认 100
	MaxOpenConns int `yaml:"max-open-conns" default:"100"`
	// ConnMaxLifetime 连接最大生命周期，支持格式：30m（分钟）、1h（小时），默认 30m
	ConnMaxLifetime string `yaml:"conn-max-lifetime" default:"30m"`
	// ConnMaxIdleTime 空闲连接最大生命周期，默认 10m
	ConnMaxIdleTime string `yaml:"conn-max-idle-time" default:"10m"`
}

// Dao 数据访问对象，持有数据库连接
type Dao struct {
	Db         *gorm.DB
	cfg        Config
	writeQueue *writequeue.Manager
	logger     *zap.Logger
}

// New 创建 Dao，writeQueue 为 nil 时写操作直接执行
func New(db *gorm.DB, cfg Config, writeQueue *writequeue.Manager, logger *zap.Logger) *Dao {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dao{Db: db, cfg: cfg, writeQueue: writeQueue, logger: logger}
}

func (d *Dao) DB() *gorm.DB {
	return d.Db
}

// AutoMigrate 迁移全部表
func (d *Dao) AutoMigrate() error {
	return model.AutoMigrate(d.Db, "")
}

// ExecuteWrite 执行写操作
// SQLite 只允许单写，写操作经写队列串行执行；其他数据库直接执行
func (d *Dao) ExecuteWrite(ctx context.Context, fn func(db *gorm.DB) error) error {
	if d.writeQueue == nil || d.cfg.Type != "sqlite" {
		return fn(d.Db.WithContext(ctx))
	}
	return d.writeQueue.Execute(ctx, writeKey, func() error {
		return fn(d.Db.WithContext(ctx))
	})
}

// Close 关闭底层连接
func (d *Dao) Close() error {
	sqlDB, err := d.Db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewDBEngine 根据配置创建 gorm 连接
func NewDBEngine(c Config, debug bool) (*gorm.DB, error) {
	dialector, err := useDialector(c)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   c.TablePrefix, // 表名前缀
			SingularTable: true,          // 使用单数表名
		},
	})
	if err != nil {
		return nil, err
	}
	if debug {
		db.Config.Logger = logger.Default.LogMode(logger.Info)
	}

	// 获取通用数据库对象 sql.DB ，然后使用其提供的功能
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// SetMaxIdleConns 用于设置连接池中空闲连接的最大数量。
	sqlDB.SetMaxIdleConns(c.MaxIdleConns)

	// SetMaxOpenConns 设置打开数据库连接的最大数量。
	sqlDB.SetMaxOpenConns(c.MaxOpenConns)

	// SetConnMaxLifetime 设置了连接可复用的最大时间。
	sqlDB.SetConnMaxLifetime(util.ParseDurationOr(c.ConnMaxLifetime, 30*time.Minute))
	sqlDB.SetConnMaxIdleTime(util.ParseDurationOr(c.ConnMaxIdleTime, 10*time.Minute))

	return db, nil
}

func useDialector(c Config) (gorm.Dialector, error) {
	switch c.Type {
	case "mysql":
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=%s&parseTime=%t&loc=Local",
			c.UserName,
			c.Password,
			c.Host,
			c.Name,
			c.Charset,
			c.ParseTime,
		)), nil
	case "postgres":
		return postgres.Open(fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host,
			c.Port,
			c.UserName,
			c.Password,
			c.Name,
			c.SSLMode,
		)), nil
	case "sqlite", "":
		if c.Path != ":memory:" && !fileurl.IsExist(c.Path) {
			if err := fileurl.CreatePath(c.Path, os.ModePerm); err != nil {
				return nil, err
			}
		}
		return sqlite.Open(c.Path), nil
	}
	return nil, fmt.Errorf("unsupported database type %q", c.Type)
}
