// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-ovpnpki.
//
// go-ovpnpki is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.


package reconcile

import (
	"context"
	"path"
	"testing"

	"github.com/jeremyhahn/go-ovpnpki/pkg/artifact"
	"github.com/jeremyhahn/go-ovpnpki/pkg/checksum"
	"github.com/jeremyhahn/go-ovpnpki/pkg/easyrsa"
	"github.com/jeremyhahn/go-ovpnpki/pkg/runner"
	"github.com/jeremyhahn/go-ovpnpki/pkg/storage"
	"github.com/jeremyhahn/go-ovpnpki/pkg/storage/file"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cacheDir = "/home/ops/.cache/ovpnpki"

// pkiFixture is an easyrsa directory, a checksum cache and a scripted
// easyrsa on one in-memory filesystem.
type pkiFixture struct {
	host     afero.Fs
	pki      afero.Fs
	sidecars storage.Backend
	runner   *runner.Mock
	client   *ClientCertificate

	// contents written by build-client-full
	req, key, crt string
}

func newPKIFixture(t *testing.T) *pkiFixture {
	t.Helper()

	f := &pkiFixture{
		host:   afero.NewMemMapFs(),
		runner: runner.NewMock(),
		req:    "REQA",
		key:    "KEYA",
		crt:    "CRTA",
	}
	require.NoError(t, f.host.MkdirAll("/etc/easy-rsa/pki", 0700))
	f.pki = afero.NewBasePathFs(f.host, "/etc/easy-rsa")

	sidecars, err := file.New(f.host, cacheDir)
	require.NoError(t, err)
	f.sidecars = sidecars

	f.runner.On("build-client-full", func(args []string) *runner.Result {
		subject := args[2]
		f.write(t, subject, f.req, f.key, f.crt)
		return &runner.Result{Stdout: "Certificate created at: pki/issued/" + subject + ".crt\n"}
	})
	f.runner.On("revoke", func(args []string) *runner.Result {
		subject := args[2]
		for _, a := range artifact.ClientCertificateSet(subject).Artifacts {
			target := path.Join("pki/revoked", path.Base(path.Dir(a.Path)), path.Base(a.Path))
			_ = f.pki.MkdirAll(path.Dir(target), 0700)
			_ = f.pki.Rename(a.Path, target)
		}
		return &runner.Result{Stdout: "Revocation was successful.\n"}
	})

	store := checksum.NewStore(f.pki, f.sidecars)
	validator := artifact.NewValidator(store, cacheDir, nil)
	client, err := NewClientCertificate(ClientCertificateConfig{
		EasyRSA:   easyrsa.New(f.runner, ""),
		Validator: validator,
	})
	require.NoError(t, err)
	f.client = client
	return f
}

func (f *pkiFixture) write(t *testing.T, subject, req, key, crt string) {
	t.Helper()
	set := artifact.ClientCertificateSet(subject)
	for name, content := range map[string]string{
		artifact.NameRequest:     req,
		artifact.NameKey:         key,
		artifact.NameCertificate: crt,
	} {
		a, err := set.Get(name)
		require.NoError(t, err)
		require.NoError(t, afero.WriteFile(f.pki, a.Path, []byte(content), 0600))
	}
}

func (f *pkiFixture) sidecar(t *testing.T, subject, name string) string {
	t.Helper()
	data, err := f.sidecars.Get(storage.SidecarKey(subject, name))
	require.NoError(t, err)
	return string(data)
}

func (f *pkiFixture) count(sub string) int {
	n := 0
	for _, c := range f.runner.Calls() {
		for _, a := range c.Args {
			if a == sub {
				n++
				break
			}
		}
	}
	return n
}

func TestClientCertificate_AliceLifecycle(t *testing.T) {
	f := newPKIFixture(t)
	ctx := context.Background()

	// First reconcile issues the certificate and records digests
	r, err := f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)
	rep := r.Report()
	assert.IsType(t, Created{}, r)
	assert.True(t, rep.Changed)
	assert.False(t, rep.Failed)
	assert.Equal(t, MessageCertificateCreated, rep.Message)

	assert.Equal(t, checksum.Sum([]byte("REQA")).Digest, f.sidecar(t, "alice", "req"))
	assert.Equal(t, checksum.Sum([]byte("KEYA")).Digest, f.sidecar(t, "alice", "key"))
	assert.Equal(t, checksum.Sum([]byte("CRTA")).Digest, f.sidecar(t, "alice", "crt"))

	// Second reconcile is a no-op
	r, err = f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)
	rep = r.Report()
	assert.IsType(t, AlreadyValid{}, r)
	assert.False(t, rep.Changed)
	assert.False(t, rep.Failed)
	assert.Equal(t, "All Files are valid.", rep.Message)

	// Third reconcile after the key was edited out of band
	require.NoError(t, afero.WriteFile(f.pki, "pki/private/alice.key", []byte("KEYB"), 0600))

	r, err = f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)
	rep = r.Report()
	assert.IsType(t, Drifted{}, r)
	assert.False(t, rep.Changed)
	assert.True(t, rep.Failed)
	assert.Equal(t, []string{"key"}, rep.ChangedArtifacts)
	assert.Equal(t, cacheDir+"/alice/key.sha256 has changed", rep.Message)
	assert.ErrorIs(t, Err(r), artifact.ErrChecksumDrift)

	// The stale digest is never overwritten
	assert.Equal(t, checksum.Sum([]byte("KEYA")).Digest, f.sidecar(t, "alice", "key"))

	assert.Equal(t, 1, f.count("build-client-full"))
}

func TestClientCertificate_BootstrapsExistingFiles(t *testing.T) {
	f := newPKIFixture(t)
	f.write(t, "bob", "REQ\n", "KEY\n", "CRT\n")

	r, err := f.client.Present(context.Background(), "bob", Options{})
	require.NoError(t, err)

	assert.Equal(t, AlreadyValid{Message: "All Files are valid.", Bootstrapped: []string{"req", "key", "crt"}}, r)
	assert.False(t, r.Report().Changed)
	assert.Equal(t, checksum.Sum([]byte("KEY")).Digest, f.sidecar(t, "bob", "key"))
	assert.Empty(t, f.runner.Calls())
}

func TestClientCertificate_IncompleteSetIsNeverRegenerated(t *testing.T) {
	f := newPKIFixture(t)
	ctx := context.Background()

	_, err := f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)
	require.NoError(t, f.pki.Remove("pki/private/alice.key"))

	r, err := f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)

	rep := r.Report()
	assert.True(t, rep.Failed)
	assert.False(t, rep.Changed)
	assert.Contains(t, rep.Message, "pki/private/alice.key is missing")
	assert.ErrorIs(t, Err(r), artifact.ErrIncompleteArtifactSet)
	assert.Equal(t, 1, f.count("build-client-full"))

	exists, err := afero.Exists(f.pki, "pki/private/alice.key")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClientCertificate_CommandFailurePersistsNothing(t *testing.T) {
	f := newPKIFixture(t)
	f.runner.On("build-client-full", func([]string) *runner.Result {
		return &runner.Result{ExitCode: 1, Stdout: "Easy-RSA error:\n\nRequest file already exists\n"}
	})

	r, err := f.client.Present(context.Background(), "alice", Options{})
	require.NoError(t, err)

	rep := r.Report()
	assert.True(t, rep.Failed)
	assert.False(t, rep.Changed)
	assert.Equal(t, "Easy-RSA error:\n\nRequest file already exists", rep.Message)
	assert.ErrorIs(t, Err(r), ErrExternalCommand)

	keys, err := f.sidecars.List("")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestClientCertificate_CommandCreatedNothing(t *testing.T) {
	f := newPKIFixture(t)
	f.runner.On("build-client-full", runner.Succeed(""))

	r, err := f.client.Present(context.Background(), "alice", Options{})
	require.NoError(t, err)
	assert.True(t, r.Report().Failed)
	assert.ErrorIs(t, Err(r), artifact.ErrIncompleteArtifactSet)

	keys, err := f.sidecars.List("")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestClientCertificate_CommandCreatedPartialSet(t *testing.T) {
	f := newPKIFixture(t)
	f.runner.On("build-client-full", func(args []string) *runner.Result {
		subject := args[2]
		f.write(t, subject, f.req, f.key, f.crt)
		crt, err := artifact.ClientCertificateSet(subject).Get(artifact.NameCertificate)
		require.NoError(t, err)
		require.NoError(t, f.pki.Remove(crt.Path))
		return &runner.Result{}
	})

	r, err := f.client.Present(context.Background(), "alice", Options{})
	require.NoError(t, err)
	rep := r.Report()
	assert.True(t, rep.Failed)
	assert.False(t, rep.Changed)
	assert.ErrorIs(t, Err(r), artifact.ErrIncompleteArtifactSet)
	assert.Contains(t, rep.Message, "pki/issued/alice.crt was not created")

	// No digest is recorded for a set that failed mid-creation
	keys, err := f.sidecars.List("")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestClientCertificate_RevokeIsFinal(t *testing.T) {
	f := newPKIFixture(t)
	ctx := context.Background()

	_, err := f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)

	r, err := f.client.Absent(ctx, "alice", Options{})
	require.NoError(t, err)
	rep := r.Report()
	assert.IsType(t, Revoked{}, r)
	assert.True(t, rep.Changed)
	assert.Equal(t, "The certificate for the user alice has been revoked successfully.", rep.Message)

	assert.Equal(t, []string{
		"easyrsa --batch build-client-full alice nopass",
		"easyrsa --batch revoke alice",
		"easyrsa gen-crl",
	}, f.runner.CommandLines())

	// Only the revocation marker is left
	keys, err := f.sidecars.List("alice/")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice/revoked"}, keys)

	// Each constituent reads as absent, not changed
	store := checksum.NewStore(f.pki, f.sidecars)
	for _, a := range artifact.ClientCertificateSet("alice").Artifacts {
		v, err := store.Check(a.ChecksumKey, a.Path)
		require.NoError(t, err)
		assert.Equal(t, checksum.StatusAbsent, v.Status, a.Name)
		assert.False(t, v.Changed())
	}

	// Content is kept for audit
	exists, err := afero.Exists(f.pki, "pki/revoked/private/alice.key")
	require.NoError(t, err)
	assert.True(t, exists)

	// No automatic resurrection
	r, err = f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)
	assert.True(t, r.Report().Failed)
	assert.ErrorIs(t, Err(r), artifact.ErrRevoked)
	assert.Equal(t, 1, f.count("build-client-full"))

	// Revoking again is a no-op
	r, err = f.client.Absent(ctx, "alice", Options{})
	require.NoError(t, err)
	assert.IsType(t, NoOp{}, r)
	assert.Equal(t, 1, f.count("revoke"))

	// Clearing the state allows provisioning the name again
	r, err = f.client.Clear(ctx, "alice")
	require.NoError(t, err)
	assert.IsType(t, Removed{}, r)

	r, err = f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)
	assert.IsType(t, Created{}, r)
	assert.Equal(t, 2, f.count("build-client-full"))
}

func TestClientCertificate_ForceClearsRevocation(t *testing.T) {
	f := newPKIFixture(t)
	ctx := context.Background()

	_, err := f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)
	_, err = f.client.Absent(ctx, "alice", Options{})
	require.NoError(t, err)

	r, err := f.client.Present(ctx, "alice", Options{Force: true})
	require.NoError(t, err)
	assert.IsType(t, Created{}, r)
}

func TestClientCertificate_ForceRebaselinesDrift(t *testing.T) {
	f := newPKIFixture(t)
	ctx := context.Background()

	_, err := f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(f.pki, "pki/issued/alice.crt", []byte("CRTB"), 0600))

	r, err := f.client.Present(ctx, "alice", Options{Force: true})
	require.NoError(t, err)
	assert.IsType(t, AlreadyValid{}, r)
	assert.Equal(t, checksum.Sum([]byte("CRTB")).Digest, f.sidecar(t, "alice", "crt"))
	assert.Equal(t, 1, f.count("build-client-full"))
}

func TestClientCertificate_AbsentWithoutRequest(t *testing.T) {
	f := newPKIFixture(t)

	r, err := f.client.Absent(context.Background(), "bob", Options{})
	require.NoError(t, err)
	assert.Equal(t, NoOp{Message: "There is no certificate request for the user bob."}, r)
	assert.Empty(t, f.runner.Calls())
}

func TestClientCertificate_RevokeFailureKeepsState(t *testing.T) {
	f := newPKIFixture(t)
	ctx := context.Background()

	_, err := f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)
	f.runner.On("revoke", runner.Fail(1, "Unable to revoke as the input file is not a valid certificate."))

	r, err := f.client.Absent(ctx, "alice", Options{})
	require.NoError(t, err)
	assert.True(t, r.Report().Failed)
	assert.Equal(t, "Unable to revoke as the input file is not a valid certificate.", r.Report().Message)

	keys, err := f.sidecars.List("alice/")
	require.NoError(t, err)
	assert.Len(t, keys, 3)
	assert.Equal(t, 0, f.count("gen-crl"))
}

func TestClientCertificate_CRLFailureAfterRevoke(t *testing.T) {
	f := newPKIFixture(t)
	ctx := context.Background()

	_, err := f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)
	f.runner.On("gen-crl", runner.Fail(1, "CRL generation failed"))

	r, err := f.client.Absent(ctx, "alice", Options{})
	require.NoError(t, err)
	assert.True(t, r.Report().Failed)
	assert.Contains(t, r.Report().Message, "has been revoked but the CRL could not be regenerated")

	exists, err := f.sidecars.Exists(storage.TombstoneKey("alice"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestClientCertificate_CRLRetriedAfterFailure(t *testing.T) {
	f := newPKIFixture(t)
	ctx := context.Background()

	_, err := f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)
	f.runner.On("gen-crl", runner.Fail(1, "CRL generation failed"))

	r, err := f.client.Absent(ctx, "alice", Options{})
	require.NoError(t, err)
	require.True(t, r.Report().Failed)

	exists, err := f.sidecars.Exists(storage.CRLPendingKey("alice"))
	require.NoError(t, err)
	assert.True(t, exists)

	// Still failing: the rerun retries gen-crl and reports failure again
	r, err = f.client.Absent(ctx, "alice", Options{})
	require.NoError(t, err)
	assert.True(t, r.Report().Failed)

	f.runner.On("gen-crl", runner.Succeed(""))
	r, err = f.client.Absent(ctx, "alice", Options{})
	require.NoError(t, err)
	rep := r.Report()
	assert.IsType(t, Revoked{}, r)
	assert.True(t, rep.Changed)
	assert.False(t, rep.Failed)

	assert.Equal(t, []string{
		"easyrsa --batch build-client-full alice nopass",
		"easyrsa --batch revoke alice",
		"easyrsa gen-crl",
		"easyrsa gen-crl",
		"easyrsa gen-crl",
	}, f.runner.CommandLines())

	keys, err := f.sidecars.List("alice/")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice/revoked"}, keys)

	// Once the CRL is current the subject reads as already revoked
	r, err = f.client.Absent(ctx, "alice", Options{})
	require.NoError(t, err)
	assert.IsType(t, NoOp{}, r)
	assert.Len(t, f.runner.Calls(), 5)
}

func TestClientCertificate_CRLRetriedWithForce(t *testing.T) {
	f := newPKIFixture(t)
	ctx := context.Background()

	_, err := f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)
	f.runner.On("gen-crl", runner.Fail(1, "CRL generation failed"))
	_, err = f.client.Absent(ctx, "alice", Options{})
	require.NoError(t, err)

	// The request has moved to pki/revoked; force still reaches gen-crl
	f.runner.On("gen-crl", runner.Succeed(""))
	r, err := f.client.Absent(ctx, "alice", Options{Force: true})
	require.NoError(t, err)
	assert.IsType(t, Revoked{}, r)

	lines := f.runner.CommandLines()
	assert.Equal(t, "easyrsa gen-crl", lines[len(lines)-1])
	assert.Equal(t, 1, countLines(lines, "easyrsa --batch revoke alice"))
}

func TestClientCertificate_ClearRefusedWhileCRLPending(t *testing.T) {
	f := newPKIFixture(t)
	ctx := context.Background()

	_, err := f.client.Present(ctx, "alice", Options{})
	require.NoError(t, err)
	f.runner.On("gen-crl", runner.Fail(1, "CRL generation failed"))
	_, err = f.client.Absent(ctx, "alice", Options{})
	require.NoError(t, err)

	r, err := f.client.Clear(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, r.Report().Failed)
	assert.Contains(t, r.Report().Message, "Run absent again")

	exists, err := f.sidecars.Exists(storage.CRLPendingKey("alice"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func countLines(lines []string, want string) int {
	n := 0
	for _, l := range lines {
		if l == want {
			n++
		}
	}
	return n
}

func TestClientCertificate_ClearNothing(t *testing.T) {
	f := newPKIFixture(t)

	r, err := f.client.Clear(context.Background(), "carol")
	require.NoError(t, err)
	assert.IsType(t, NoOp{}, r)
}

func TestClientCertificate_InvalidSubject(t *testing.T) {
	f := newPKIFixture(t)
	ctx := context.Background()

	_, err := f.client.Present(ctx, "../alice", Options{})
	assert.Error(t, err)
	_, err = f.client.Absent(ctx, "", Options{})
	assert.Error(t, err)
	_, err = f.client.Clear(ctx, "a/b")
	assert.Error(t, err)
	_, err = f.client.Inspect("--batch")
	assert.Error(t, err)
	assert.Empty(t, f.runner.Calls())
}

func TestClientCertificate_Inspect(t *testing.T) {
	f := newPKIFixture(t)
	f.write(t, "bob", "REQ", "KEY", "CRT")

	vr, err := f.client.Inspect("bob")
	require.NoError(t, err)
	assert.Equal(t, artifact.StatePendingChecksum, vr.State)

	keys, err := f.sidecars.List("")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestNewClientCertificate_RequiresDependencies(t *testing.T) {
	_, err := NewClientCertificate(ClientCertificateConfig{})
	assert.Error(t, err)

	_, err = NewClientCertificate(ClientCertificateConfig{EasyRSA: easyrsa.New(runner.NewMock(), "")})
	assert.Error(t, err)
}
