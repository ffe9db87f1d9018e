package proof

import (
	"errors"
	"fmt"

	curve "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
)

// ErrMalformedProof marks a proof whose wire form cannot be mapped back onto
// valid curve points. Callers treat it as verification failure, never a crash.
var ErrMalformedProof = errors.New("malformed proof")

// FromGnark converts a freshly generated gnark proof into the wire form.
func FromGnark(p groth16.Proof) (*Proof, error) {
	bp, ok := p.(*groth16bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("unexpected proof type %T, want %s", p, CurveID)
	}
	return &Proof{
		Protocol: Protocol,
		Curve:    CurveID,
		PiA:      [2]string{bp.Ar.X.String(), bp.Ar.Y.String()},
		PiB: [2][2]string{
			{bp.Bs.X.A0.String(), bp.Bs.X.A1.String()},
			{bp.Bs.Y.A0.String(), bp.Bs.Y.A1.String()},
		},
		PiC: [2]string{bp.Krs.X.String(), bp.Krs.Y.String()},
	}, nil
}

// ToGnark reconstructs the gnark proof object from the wire form. Points are
// subgroup-checked here so a corrupted proof surfaces as ErrMalformedProof
// instead of an opaque pairing failure.
func (p *Proof) ToGnark() (groth16.Proof, error) {
	if p.Protocol != "" && p.Protocol != Protocol {
		return nil, fmt.Errorf("%w: protocol %q, want %q", ErrMalformedProof, p.Protocol, Protocol)
	}
	if p.Curve != "" && p.Curve != CurveID {
		return nil, fmt.Errorf("%w: curve %q, want %q", ErrMalformedProof, p.Curve, CurveID)
	}

	var bp groth16bn254.Proof
	if err := setG1(&bp.Ar, p.PiA); err != nil {
		return nil, fmt.Errorf("%w: pi_a: %v", ErrMalformedProof, err)
	}
	if err := setG2(&bp.Bs, p.PiB); err != nil {
		return nil, fmt.Errorf("%w: pi_b: %v", ErrMalformedProof, err)
	}
	if err := setG1(&bp.Krs, p.PiC); err != nil {
		return nil, fmt.Errorf("%w: pi_c: %v", ErrMalformedProof, err)
	}
	return &bp, nil
}

func setG1(dst *curve.G1Affine, coords [2]string) error {
	if err := setFp(&dst.X, coords[0]); err != nil {
		return err
	}
	if err := setFp(&dst.Y, coords[1]); err != nil {
		return err
	}
	if !dst.IsInSubGroup() {
		return errors.New("point not in G1")
	}
	return nil
}

func setG2(dst *curve.G2Affine, coords [2][2]string) error {
	if err := setFp(&dst.X.A0, coords[0][0]); err != nil {
		return err
	}
	if err := setFp(&dst.X.A1, coords[0][1]); err != nil {
		return err
	}
	if err := setFp(&dst.Y.A0, coords[1][0]); err != nil {
		return err
	}
	if err := setFp(&dst.Y.A1, coords[1][1]); err != nil {
		return err
	}
	if !dst.IsInSubGroup() {
		return errors.New("point not in G2")
	}
	return nil
}

func setFp(dst *fp.Element, s string) error {
	if _, err := dst.SetString(s); err != nil {
		return fmt.Errorf("coordinate %q: %w", s, err)
	}
	return nil
}

// VerifyingKeyExport is the verification key in the layout the on-chain
// verifier contract consumes: alpha in G1, beta/gamma/delta in G2, and the
// input-commitment vector sized to the number of public signals plus one.
type VerifyingKeyExport struct {
	Protocol string       `json:"protocol"`
	Curve    string       `json:"curve"`
	Alpha    [2]string    `json:"alpha"`
	Beta     [2][2]string `json:"beta"`
	Gamma    [2][2]string `json:"gamma"`
	Delta    [2][2]string `json:"delta"`
	IC       [][2]string  `json:"ic"`
}

// ExportVerifyingKey renders the loaded verification key for on-chain use.
func ExportVerifyingKey(vk groth16.VerifyingKey) (*VerifyingKeyExport, error) {
	bvk, ok := vk.(*groth16bn254.VerifyingKey)
	if !ok {
		return nil, fmt.Errorf("unexpected verifying key type %T, want %s", vk, CurveID)
	}

	out := &VerifyingKeyExport{
		Protocol: Protocol,
		Curve:    CurveID,
		Alpha:    g1Strings(bvk.G1.Alpha),
		Beta:     g2Strings(bvk.G2.Beta),
		Gamma:    g2Strings(bvk.G2.Gamma),
		Delta:    g2Strings(bvk.G2.Delta),
		IC:       make([][2]string, len(bvk.G1.K)),
	}
	for i := range bvk.G1.K {
		out.IC[i] = g1Strings(bvk.G1.K[i])
	}
	return out, nil
}

func g1Strings(p curve.G1Affine) [2]string {
	return [2]string{p.X.String(), p.Y.String()}
}

func g2Strings(p curve.G2Affine) [2][2]string {
	return [2][2]string{
		{p.X.A0.String(), p.X.A1.String()},
		{p.Y.A0.String(), p.Y.A1.String()},
	}
}
