package docfed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"backoffice-service/internal/model"
)

func TestValidCPF(t *testing.T) {
	valid := []string{
		"52998224725",
		"11144477735",
		"529.982.247-25",
	}
	for _, num := range valid {
		assert.True(t, ValidCPF(num), num)
	}

	invalid := []string{
		"",
		"529982247",    // too short
		"529982247250", // too long
		"52998224726",  // wrong check digit
		"11111111111",  // repeated digits pass the checksum but are not issued
		"5299822472a",
		"529.982.247-2x5",
	}
	for _, num := range invalid {
		assert.False(t, ValidCPF(num), num)
	}
}

func TestNonCanonicalCharactersInvalidate(t *testing.T) {
	// junk around or between the digits must not be stripped into a
	// number that then checks out
	invalid := []string{
		"5x2x9x9x8x2x2x4x7x2x5",
		"cpf:52998224725!!",
		" 52998224725",
		"52998224725\n",
	}
	for _, num := range invalid {
		assert.False(t, ValidCPF(num), num)
	}

	assert.False(t, ValidCNPJ("cnpj 11222333000181"))
	assert.False(t, ValidCNPJ("11x222x333x0001x81"))
}

func TestValidCNPJ(t *testing.T) {
	assert.True(t, ValidCNPJ("11222333000181"))
	assert.True(t, ValidCNPJ("11.222.333/0001-81"))

	assert.False(t, ValidCNPJ("11222333000180"))
	assert.False(t, ValidCNPJ("112223330001"))
	assert.False(t, ValidCNPJ("11111111111111"))
}

func TestValidateSelectsFormatByPersonType(t *testing.T) {
	cpf := "52998224725"
	cnpj := "11222333000181"

	assert.True(t, Validate(cpf, model.PersonIndividual))
	assert.False(t, Validate(cpf, model.PersonCompany))

	assert.True(t, Validate(cnpj, model.PersonCompany))
	assert.False(t, Validate(cnpj, model.PersonIndividual))

	assert.False(t, Validate(cpf, model.PersonType("unknown")))
}
