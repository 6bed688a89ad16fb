package gitstore

import (
	"fmt"

	"github.com/haierkeys/artifact-git-sync/internal/domain"
	"github.com/haierkeys/artifact-git-sync/pkg/credential"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"golang.org/x/crypto/ssh"
)

const defaultTokenUser = "token"

// authScope 一次 clone/pull/push 调用期间持有的凭据
// Close 后凭据被清零，不可再使用
type authScope struct {
	method transport.AuthMethod
	secret *credential.Secret
	key    []byte
}

func (a *authScope) Method() transport.AuthMethod {
	if a == nil {
		return nil
	}
	return a.method
}

// Close 清除内存中的凭据
func (a *authScope) Close() {
	if a == nil {
		return
	}
	for i := range a.key {
		a.key[i] = 0
	}
	a.key = nil
	if basic, ok := a.method.(*http.BasicAuth); ok {
		basic.Password = ""
	}
	a.method = nil
	a.secret.Wipe()
	a.secret = nil
}

// acquireAuth 按连接的认证方式构造凭据，调用方必须 defer Close
func (s *Store) acquireAuth(conn *domain.RepositoryConnection) (*authScope, error) {
	scope := &authScope{}
	if conn.AuthMode == domain.AuthModeNone || conn.AuthMode == "" {
		return scope, nil
	}

	if conn.Credentials == "" {
		return nil, fmt.Errorf("auth mode %s requires credentials", conn.AuthMode)
	}
	if s.creds == nil {
		return nil, fmt.Errorf("no credential codec configured")
	}
	secret, err := s.creds.Open(conn.Credentials)
	if err != nil {
		return nil, fmt.Errorf("open credentials: %w", err)
	}
	scope.secret = secret

	switch conn.AuthMode {
	case domain.AuthModeToken:
		if secret.Token == "" {
			scope.Close()
			return nil, fmt.Errorf("token credentials are empty")
		}
		user := secret.Username
		if user == "" {
			user = defaultTokenUser
		}
		scope.method = &http.BasicAuth{Username: user, Password: secret.Token}

	case domain.AuthModeSSH:
		method, err := s.sshAuth(scope, secret)
		if err != nil {
			scope.Close()
			return nil, err
		}
		scope.method = method

	default:
		scope.Close()
		return nil, fmt.Errorf("unsupported auth mode %q", conn.AuthMode)
	}

	return scope, nil
}

func (s *Store) sshAuth(scope *authScope, secret *credential.Secret) (transport.AuthMethod, error) {
	user := secret.SSHUser
	if user == "" {
		user = gitssh.DefaultUsername
	}

	var (
		keys *gitssh.PublicKeys
		err  error
	)
	switch {
	case secret.SSHKey != "":
		scope.key = []byte(secret.SSHKey)
		keys, err = gitssh.NewPublicKeys(user, scope.key, secret.SSHPassphrase)
	case secret.SSHKeyPath != "":
		keys, err = gitssh.NewPublicKeysFromFile(user, secret.SSHKeyPath, secret.SSHPassphrase)
	default:
		return nil, fmt.Errorf("ssh credentials carry no key")
	}
	if err != nil {
		return nil, fmt.Errorf("load ssh key: %w", err)
	}

	callback, err := s.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	if callback != nil {
		keys.HostKeyCallback = callback
	}
	return keys, nil
}

// hostKeyCallback 返回 nil 时沿用 go-git 默认的 known_hosts 校验
func (s *Store) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if s.cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if s.cfg.KnownHostsFile != "" {
		cb, err := gitssh.NewKnownHostsCallback(s.cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		return cb, nil
	}
	return nil, nil
}
