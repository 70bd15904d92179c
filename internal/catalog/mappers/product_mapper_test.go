package mappers

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
)

func adminProduct(id string, creams ...string) domain.AdminProduct {
	return domain.AdminProduct{
		ID:           id,
		Name:         "Honey Cake",
		Description:  "Layered honey sponge",
		Images:       []string{"", "honey.jpg"},
		Prices:       []domain.PriceTier{{WeightLabel: "1kg", Amount: 2500, Servings: 8}},
		CreamOptions: creams,
		TinOptions:   []string{"Round", " "},
		IsActive:     true,
	}
}

func freeCreams(creams []domain.Cream) int {
	n := 0
	for _, c := range creams {
		if c.ExtraCost == 0 {
			n++
		}
	}
	return n
}

func TestCakeFromAdmin_DuplicateFreeCreams(t *testing.T) {
	cake, err := CakeFromAdmin(adminProduct("prod7", "Vanilla", "Vanilla (+0)", "Chocolate (+200)"))

	require.NoError(t, err)
	assert.Equal(t, int64(7), cake.ID)
	assert.Equal(t, "prod7", cake.SourceID)
	assert.Equal(t, []domain.Cream{
		{Name: "Vanilla", ExtraCost: 0},
		{Name: "Vanilla", ExtraCost: 50},
		{Name: "Chocolate", ExtraCost: 200},
	}, cake.Creams)
	assert.Equal(t, 0, cake.DefaultCreamIndex)
	assert.Equal(t, "honey.jpg", cake.Image)
	assert.Equal(t, []string{"Round"}, cake.Tins)
	assert.True(t, cake.Featured)
}

func TestCakeFromAdmin_ExactlyOneFreeCream(t *testing.T) {
	cases := [][]string{
		{"Vanilla"},
		{"Caramel (+100)", "Vanilla", "Cream cheese", "Berry (+0)"},
		{"Mascarpone (+300)", "Plain (+0)"},
		{"A", "B", "C", "D", "E"},
	}
	for i, creams := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			cake, err := CakeFromAdmin(adminProduct("cake-12", creams...))
			require.NoError(t, err)

			assert.Equal(t, 1, freeCreams(cake.Creams))
			def, ok := cake.DefaultCream()
			require.True(t, ok)
			assert.Zero(t, def.ExtraCost)
			for j, c := range cake.Creams {
				if j != cake.DefaultCreamIndex {
					assert.Positive(t, c.ExtraCost)
				}
			}
		})
	}
}

func TestCakeFromAdmin_DefaultIsFirstFree(t *testing.T) {
	cake, err := CakeFromAdmin(adminProduct("p3", "Caramel (+100)", "Butter", "Plain"))

	require.NoError(t, err)
	assert.Equal(t, 1, cake.DefaultCreamIndex)
	assert.Equal(t, int64(50), cake.Creams[2].ExtraCost)
}

func TestCakeFromAdmin_NoFreeCreamPromotesFirst(t *testing.T) {
	cake, err := CakeFromAdmin(adminProduct("p3", "Caramel (+100)", "Berry (+80)"))

	require.NoError(t, err)
	assert.Equal(t, 0, cake.DefaultCreamIndex)
	assert.Equal(t, []domain.Cream{{Name: "Caramel"}, {Name: "Berry", ExtraCost: 80}}, cake.Creams)
}

func TestCakeFromAdmin_TinOnlyProduct(t *testing.T) {
	cake, err := CakeFromAdmin(adminProduct("p4"))

	require.NoError(t, err)
	assert.Empty(t, cake.Creams)
	assert.Equal(t, -1, cake.DefaultCreamIndex)
	_, ok := cake.DefaultCream()
	assert.False(t, ok)
}

func TestParseCatalogID(t *testing.T) {
	cases := map[string]int64{
		"prod7":   7,
		"42":      42,
		"cake-12": 12,
		"p007":    7,
		"7a":      7,
	}
	for in, want := range cases {
		got, err := ParseCatalogID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "prod", "abc-", "99999999999999999999"} {
		_, err := ParseCatalogID(bad)
		assert.ErrorIs(t, err, ErrMalformedID, bad)
	}
}

func TestCakeFromAdmin_MalformedInput(t *testing.T) {
	t.Run("id without digits", func(t *testing.T) {
		_, err := CakeFromAdmin(adminProduct("product", "Vanilla"))

		var te *TransformError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "product", te.ProductID)
		assert.ErrorIs(t, err, ErrMalformedID)
	})

	t.Run("unreadable surcharge", func(t *testing.T) {
		_, err := CakeFromAdmin(adminProduct("p1", "Vanilla", "Chocolate (+abc)"))
		assert.ErrorIs(t, err, ErrMalformedCream)
	})

	t.Run("surcharge without name", func(t *testing.T) {
		_, err := CakeFromAdmin(adminProduct("p1", "(+20)"))
		assert.ErrorIs(t, err, ErrMalformedCream)
	})
}

func TestParseCream(t *testing.T) {
	c, err := ParseCream("  Pistachio ( + 150 ) ")
	require.NoError(t, err)
	assert.Equal(t, domain.Cream{Name: "Pistachio", ExtraCost: 150}, c)

	c, err = ParseCream("Sour cream")
	require.NoError(t, err)
	assert.Equal(t, domain.Cream{Name: "Sour cream"}, c)
}

func TestCakesFromAdmin_ReportsFailuresAndKeepsOthers(t *testing.T) {
	cakes, errs := CakesFromAdmin([]domain.AdminProduct{
		adminProduct("p1", "Vanilla"),
		adminProduct("nodigits", "Vanilla"),
		adminProduct("p2", "Vanilla"),
	})

	require.Len(t, cakes, 2)
	require.Len(t, errs, 1)
	assert.Equal(t, int64(1), cakes[0].ID)
	assert.Equal(t, int64(2), cakes[1].ID)
}
