package reference_test

import (
	"encoding/base64"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dietapronta/checkout-funnel/internal/reference"
)

var _ = Describe("Reference", func() {
	Describe("Decode", func() {
		Context("when the reference is a plain token", func() {
			It("should use the whole string as the lead ref", func() {
				// When
				ref := reference.Decode("ref-1700000000-abc123")

				// Then
				Expect(ref.LeadRef).To(Equal("ref-1700000000-abc123"))
				Expect(ref.Metadata).To(BeNil())
			})
		})

		Context("when the reference carries metadata", func() {
			It("should decode the base64 JSON blob", func() {
				// Given
				blob := base64.StdEncoding.EncodeToString([]byte(`{"order_type":"upsell","parent_ref":"ref-1"}`))

				// When
				ref := reference.Decode("ref-2##" + blob)

				// Then
				Expect(ref.LeadRef).To(Equal("ref-2"))
				Expect(ref.Metadata).To(HaveKeyWithValue("order_type", "upsell"))
				Expect(ref.Metadata).To(HaveKeyWithValue("parent_ref", "ref-1"))
			})
		})

		Context("when the metadata blob is not valid base64", func() {
			It("should keep the lead ref and drop the metadata", func() {
				// When
				ref := reference.Decode("ref-3##!!!not-base64!!!")

				// Then
				Expect(ref.LeadRef).To(Equal("ref-3"))
				Expect(ref.Metadata).To(BeNil())
			})
		})

		Context("when the metadata blob decodes to invalid JSON", func() {
			It("should keep the lead ref and drop the metadata", func() {
				// Given
				blob := base64.StdEncoding.EncodeToString([]byte(`not json at all`))

				// When
				ref := reference.Decode("ref-4##" + blob)

				// Then
				Expect(ref.LeadRef).To(Equal("ref-4"))
				Expect(ref.Metadata).To(BeNil())
			})
		})

		Context("when the reference is empty", func() {
			It("should produce an empty lead ref", func() {
				// When
				ref := reference.Decode("")

				// Then
				Expect(ref.LeadRef).To(BeEmpty())
				Expect(ref.Metadata).To(BeNil())
			})
		})
	})

	Describe("Encode", func() {
		Context("without metadata", func() {
			It("should emit the plain form", func() {
				// When
				raw := reference.Encode("ref-5", nil)

				// Then
				Expect(raw).To(Equal("ref-5"))
			})
		})

		Context("with metadata", func() {
			It("should round-trip through Decode", func() {
				// Given
				meta := map[string]any{"order_type": "upsell", "parent_ref": "ref-parent"}

				// When
				raw := reference.Encode("ref-6", meta)
				decoded := reference.Decode(raw)

				// Then
				Expect(raw).To(HavePrefix("ref-6##"))
				Expect(decoded.LeadRef).To(Equal("ref-6"))
				Expect(decoded.Metadata).To(HaveKeyWithValue("order_type", "upsell"))
				Expect(decoded.Metadata).To(HaveKeyWithValue("parent_ref", "ref-parent"))
			})
		})
	})

	Describe("generated refs", func() {
		It("should produce unique lead refs", func() {
			// When
			a := reference.NewLeadRef()
			b := reference.NewLeadRef()

			// Then
			Expect(a).To(HavePrefix("ref-"))
			Expect(a).ToNot(Equal(b))
		})

		It("should mark upsell refs distinctly", func() {
			// When
			ref := reference.NewUpsellLeadRef()

			// Then
			Expect(strings.HasPrefix(ref, "ref-upsell-")).To(BeTrue())
		})
	})
})
