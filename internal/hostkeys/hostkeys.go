/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package hostkeys provisions the per-DevServer Secret carrying pre-generated
// SSH host keys, so client known-hosts entries survive pod restarts.
package hostkeys

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"github.com/devserver-io/devserver-operator/internal/reconcileerr"
)

// rsaKeyBits is the minimum RSA key size sshd accepts comfortably; spec.md
// §4.4 requires "RSA 3072+".
const rsaKeyBits = 3072

// SecretName returns the name of the host-key Secret for a DevServer.
func SecretName(devServerName string) string {
	return devServerName + "-host-keys"
}

// Ensure returns the existing host-key Secret for name/namespace, generating
// and creating one if it does not exist. It never mutates an existing
// Secret: host keys are created once and reused on every reconcile. owner is
// the DevServer the Secret's controller owner reference points at.
func Ensure(ctx context.Context, c client.Client, scheme *runtime.Scheme, owner client.Object, namespace, devServerName string) (*corev1.Secret, error) {
	secret := &corev1.Secret{}
	key := types.NamespacedName{Name: SecretName(devServerName), Namespace: namespace}

	err := c.Get(ctx, key, secret)
	if err == nil {
		return secret, nil
	}
	if !apierrors.IsNotFound(err) {
		return nil, reconcileerr.NewTransient(fmt.Errorf("get host-key secret: %w", err))
	}

	built, err := Generate(devServerName, namespace)
	if err != nil {
		return nil, reconcileerr.NewTransient(fmt.Errorf("generate host keys: %w", err))
	}
	if err := controllerutil.SetControllerReference(owner, built, scheme); err != nil {
		return nil, reconcileerr.NewTransient(fmt.Errorf("set host-key secret owner: %w", err))
	}

	if err := c.Create(ctx, built); err != nil {
		if apierrors.IsAlreadyExists(err) {
			existing := &corev1.Secret{}
			if getErr := c.Get(ctx, key, existing); getErr != nil {
				return nil, reconcileerr.NewTransient(fmt.Errorf("re-read host-key secret after create race: %w", getErr))
			}
			return existing, nil
		}
		return nil, reconcileerr.NewTransient(fmt.Errorf("create host-key secret: %w", err))
	}
	return built, nil
}

// Generate produces a fresh Secret holding ED25519, RSA-3072 and ECDSA
// P-256 host keys in OpenSSH private-key format plus their public
// authorized-key lines, mode 0600 as sshd requires.
func Generate(devServerName, namespace string) (*corev1.Secret, error) {
	data := make(map[string][]byte, 6)

	if err := addKeyPair(data, "ed25519", newEd25519Signer); err != nil {
		return nil, err
	}
	if err := addKeyPair(data, "rsa", newRSASigner); err != nil {
		return nil, err
	}
	if err := addKeyPair(data, "ecdsa", newECDSASigner); err != nil {
		return nil, err
	}

	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      SecretName(devServerName),
			Namespace: namespace,
			Labels:    map[string]string{"app": devServerName},
		},
		Type: corev1.SecretTypeOpaque,
		Data: data,
	}, nil
}

type signerFactory func() (crypto.Signer, error)

func addKeyPair(data map[string][]byte, kind string, newSigner signerFactory) error {
	signer, err := newSigner()
	if err != nil {
		return fmt.Errorf("generate %s key: %w", kind, err)
	}

	block, err := ssh.MarshalPrivateKey(signer, "")
	if err != nil {
		return fmt.Errorf("marshal %s private key: %w", kind, err)
	}

	sshSigner, err := ssh.NewSignerFromSigner(signer)
	if err != nil {
		return fmt.Errorf("derive %s public key: %w", kind, err)
	}

	data[fmt.Sprintf("ssh_host_%s_key", kind)] = pem.EncodeToMemory(block)
	data[fmt.Sprintf("ssh_host_%s_key.pub", kind)] = ssh.MarshalAuthorizedKey(sshSigner.PublicKey())
	return nil
}

func newEd25519Signer() (crypto.Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	return priv, err
}

func newRSASigner() (crypto.Signer, error) {
	return rsa.GenerateKey(rand.Reader, rsaKeyBits)
}

func newECDSASigner() (crypto.Signer, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}
