// server/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"corsOrigins"`
}

type MongoConfig struct {
	URI                string `mapstructure:"uri"`
	DBName             string `mapstructure:"dbName"`
	ProjectsCollection string `mapstructure:"projectsCollection"`
	Watch              bool   `mapstructure:"watch"`
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	Expiration string `mapstructure:"expiration"`
}

// TTL parses Expiration; an empty or invalid value yields 24h.
func (c JWTConfig) TTL() time.Duration {
	d, err := time.ParseDuration(c.Expiration)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
	Prefix           string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type DeleteConfig struct {
	Cascade bool `mapstructure:"cascade"`
}

type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	JWT    JWTConfig    `mapstructure:"jwt"`
	Redis  RedisConfig  `mapstructure:"redis"`
	S3     S3Config     `mapstructure:"s3"`
	Log    LogConfig    `mapstructure:"log"`
	Delete DeleteConfig `mapstructure:"delete"`
	Admin  AdminConfig  `mapstructure:"admin"`
}

var envBindings = map[string]string{
	"server.port":              "SERVER_PORT",
	"server.corsOrigins":       "CORS_ORIGINS",
	"mongo.uri":                "MONGO_URI",
	"mongo.dbName":             "MONGO_DBNAME",
	"mongo.projectsCollection": "PROJECTS_COLLECTION",
	"mongo.watch":              "MONGO_WATCH",
	"jwt.secret":               "JWT_SECRET",
	"jwt.expiration":           "JWT_EXPIRATION",
	"redis.url":                "REDIS_URL",
	"s3.bucket":                "S3_BUCKET",
	"s3.region":                "S3_REGION",
	"s3.accessKeyID":           "S3_ACCESS_KEY_ID",
	"s3.secretAccessKey":       "S3_SECRET_ACCESS_KEY",
	"s3.cloudFrontDomain":      "S3_CLOUDFRONT_DOMAIN",
	"s3.prefix":                "S3_PREFIX",
	"log.level":                "LOG_LEVEL",
	"log.pretty":               "LOG_PRETTY",
	"delete.cascade":           "DELETE_CASCADE",
	"admin.email":              "ADMIN_EMAIL",
	"admin.password":           "ADMIN_PASSWORD",
}

// LoadConfig reads config.yaml from path, overridden by environment variables.
// A missing file is not an error.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.corsOrigins", []string{"*"})
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.dbName", "sistema_bup")
	v.SetDefault("mongo.projectsCollection", "estudos_viabilidade")
	v.SetDefault("mongo.watch", false)
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("s3.prefix", "resumos")
	v.SetDefault("log.level", "info")
	v.SetDefault("delete.cascade", true)

	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	config.Server.CORSOrigins = splitOrigins(config.Server.CORSOrigins)
	return
}

// splitOrigins accepts CORS_ORIGINS as one comma separated value.
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, o := range strings.Split(item, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}
