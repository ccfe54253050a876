package pg

import (
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/rdsutils"
	"github.com/pkg/errors"

	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

const driverName = "nrpgx"

// Config selects how a connection pool to the coupon bookkeeping database is
// opened. When UseAwsIam is set, Password is ignored and a short lived RDS
// auth token is generated instead.
type Config struct {
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	DbName    string `mapstructure:"dbname"`
	UseAwsIam bool   `mapstructure:"use_aws_iam"`

	MaxOpenConnections int `mapstructure:"max_open_connections"`
	MaxIdleConnections int `mapstructure:"max_idle_connections"`
}

func (c *Config) Validate() error {
	if c.Host == "" || c.User == "" || c.DbName == "" {
		return errors.New("host, user and dbname are required")
	}
	if c.Port <= 0 {
		return errors.New("port must be positive")
	}
	if !c.UseAwsIam && c.Password == "" {
		return errors.New("password is required without aws iam auth")
	}
	return nil
}

// Open returns a connection pool for the provided config.
func Open(c *Config) (*sql.DB, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid postgres config")
	}

	port := fmt.Sprintf("%d", c.Port)

	var db *sql.DB
	var err error
	if c.UseAwsIam {
		var awsConfig aws.Config
		awsConfig, err = external.LoadDefaultAWSConfig()
		if err != nil {
			return nil, errors.Wrap(err, "failed to load aws config")
		}
		db, err = NewWithAwsIam(c.User, c.Host, port, c.DbName, awsConfig)
	} else {
		db, err = NewWithUsernameAndPassword(c.User, c.Password, c.Host, port, c.DbName)
	}
	if err != nil {
		return nil, err
	}

	if c.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(c.MaxOpenConnections)
	}
	if c.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(c.MaxIdleConnections)
	}
	return db, nil
}

// NewWithAwsIam opens a pool using an IAM auth token. Only provisioned Aurora
// clusters support this, not Aurora Serverless.
//
// https://docs.aws.amazon.com/AmazonRDS/latest/AuroraUserGuide/UsingWithRDS.IAMDBAuth.Connecting.Go.html
func NewWithAwsIam(username, hostname, port, dbname string, config aws.Config) (*sql.DB, error) {
	rdsClient := rds.New(config)

	endpoint := fmt.Sprintf("%s:%s", hostname, port)
	authToken, err := rdsutils.BuildAuthToken(endpoint, rdsClient.Region, username, rdsClient.Credentials)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build rds auth token")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s",
		hostname, port, username, authToken, dbname,
	)
	return open(dsn)
}

// NewWithUsernameAndPassword opens a pool using password authentication.
func NewWithUsernameAndPassword(username, password, hostname, port, dbname string) (*sql.DB, error) {
	// TODO: enable SSL once the RDS certificate bundle is shipped with the image
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		username, password, hostname, port, dbname,
	)
	return open(dsn)
}

func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return db, nil
}
