package mongostore

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ERR_REQUIRED_PARAMS      = "host & protocol are required"
	ERR_REQUIRED_CONN_PARAMS = "connection params are required"
)

var (
	ErrRequiredParams     = errors.New(ERR_REQUIRED_PARAMS)
	ErrRequiredConnParams = errors.New(ERR_REQUIRED_CONN_PARAMS)
)

// MongoDBConfig implements infra.StoreConfig.
type MongoDBConfig struct {
	protocol string
	host     string
	user     string
	pwd      string
	params   string
	name     string
}

func NewMongoDBConfig(protocol, host, user, pwd, params, name string) MongoDBConfig {
	return MongoDBConfig{
		protocol: protocol,
		host:     host,
		user:     user,
		pwd:      pwd,
		params:   params,
		name:     name,
	}
}

func (rc MongoDBConfig) Protocol() string { return rc.protocol }
func (rc MongoDBConfig) Host() string     { return rc.host }
func (rc MongoDBConfig) User() string     { return rc.user }
func (rc MongoDBConfig) Pwd() string      { return rc.pwd }
func (rc MongoDBConfig) Params() string   { return rc.params }
func (rc MongoDBConfig) Name() string     { return rc.name }

// ConnectionBuilder builds a MongoDB connection string.
type ConnectionBuilder interface {
	// Build returns "[protocol]://[user[:password]@]host[/params]".
	// Plain "mongodb" connections require params.
	Build() (string, error)
	WithUser(u string) ConnectionBuilder
	WithPassword(p string) ConnectionBuilder
	WithConnectionParams(p string) ConnectionBuilder
}

type mongoConnectionBuilder struct {
	protocol string
	host     string
	user     string
	pwd      string
	params   string
}

func NewMongoConnectionBuilder(p, h string) ConnectionBuilder {
	return mongoConnectionBuilder{
		protocol: p,
		host:     h,
	}
}

func (b mongoConnectionBuilder) WithUser(u string) ConnectionBuilder {
	b.user = u
	return b
}

func (b mongoConnectionBuilder) WithPassword(p string) ConnectionBuilder {
	b.pwd = p
	return b
}

func (b mongoConnectionBuilder) WithConnectionParams(p string) ConnectionBuilder {
	b.params = p
	return b
}

func (b mongoConnectionBuilder) Build() (string, error) {
	if b.protocol == "" || b.host == "" {
		return "", ErrRequiredParams
	}
	if b.protocol == "mongodb" && b.params == "" {
		return "", ErrRequiredConnParams
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s://", b.protocol))
	if b.user != "" {
		sb.WriteString(b.user)
		if b.pwd != "" {
			sb.WriteString(":" + b.pwd)
		}
		sb.WriteString("@")
	}
	sb.WriteString(b.host)
	if b.params != "" {
		sb.WriteString("/" + b.params)
	}
	return sb.String(), nil
}
