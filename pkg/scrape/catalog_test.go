package scrape

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogTargets(t *testing.T) {
	catalog := DefaultCatalog()

	for _, name := range []string{"CashConverters", "CashGenerator", "CEX", "eBay"} {
		target, ok := catalog.Target(name)
		require.True(t, ok, "missing built-in target %s", name)
		assert.NotEmpty(t, target.BaseURL)
		assert.NotEmpty(t, target.Selectors.Title)
		assert.NotEmpty(t, target.Selectors.Price)
	}

	_, ok := catalog.Target("Nonexistent")
	assert.False(t, ok)
}

func TestBuildSearchURL(t *testing.T) {
	catalog := DefaultCatalog()

	t.Run("template targets escape the query", func(t *testing.T) {
		u, err := catalog.BuildSearchURL("eBay", SearchParams{Query: "iphone 13 pro"})
		require.NoError(t, err)
		assert.Contains(t, u, "_nkw=iphone+13+pro")
		assert.Contains(t, u, "LH_Sold=1")
	})

	t.Run("cash converters maps category to facet id", func(t *testing.T) {
		u, err := catalog.BuildSearchURL("CashConverters", SearchParams{
			Query:    "switch oled",
			Category: "Gaming Consoles",
		})
		require.NoError(t, err)
		assert.Contains(t, u, "query=switch+oled")
		assert.Contains(t, u, "1073741901")
	})

	t.Run("cash converters defaults unknown category to all", func(t *testing.T) {
		u, err := catalog.BuildSearchURL("CashConverters", SearchParams{
			Query:    "toaster",
			Category: "kitchenware",
		})
		require.NoError(t, err)
		assert.Contains(t, u, "f%5Bcategory%5D%5B0%5D=all")
	})

	t.Run("cex applies capacity and supercategory for phones", func(t *testing.T) {
		u, err := catalog.BuildSearchURL("CEX", SearchParams{
			Query:      "iphone 13",
			Category:   "Smartphones and Mobile",
			Attributes: map[string]string{"storage": "128GB"},
		})
		require.NoError(t, err)
		assert.Contains(t, u, "Capacity=128GB")
		assert.Contains(t, u, "superCatName=Phones")
		assert.Contains(t, u, "Grade=B")
	})

	t.Run("cex narrows switch games", func(t *testing.T) {
		u, err := catalog.BuildSearchURL("CEX", SearchParams{
			Query:       "zelda",
			Category:    "Games (Discs & Cartridges)",
			Subcategory: "Switch Games",
		})
		require.NoError(t, err)
		assert.Contains(t, u, "superCatName=Gaming")
		assert.Contains(t, u, "categoryFriendlyName=Switch+Games")
	})

	t.Run("unknown target errors", func(t *testing.T) {
		_, err := catalog.BuildSearchURL("Nonexistent", SearchParams{Query: "x"})
		assert.Error(t, err)
	})
}

func TestLoadCatalog(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		catalog, stock, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		_, ok := catalog.Target("eBay")
		assert.True(t, ok)
		assert.Equal(t, "https://nospos.com", stock.BaseURL)
	})

	t.Run("file overlays and extends defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "targets.yaml")
		content := `
targets:
  - name: PawnShopX
    base_url: https://pawnshopx.example
    search_url: https://pawnshopx.example/search?q={query}
    selectors:
      container: .result
      title: .title
      price: .price
stock:
  base_url: https://stock.example
  search_url: https://stock.example/stock/search
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))

		catalog, stock, err := LoadCatalog(path)
		require.NoError(t, err)

		added, ok := catalog.Target("PawnShopX")
		require.True(t, ok)
		assert.Equal(t, ".result", added.Selectors.Container)

		u, err := catalog.BuildSearchURL("PawnShopX", SearchParams{Query: "ps5"})
		require.NoError(t, err)
		assert.Equal(t, "https://pawnshopx.example/search?q=ps5", u)

		// Defaults survive alongside the addition.
		_, ok = catalog.Target("CEX")
		assert.True(t, ok)

		assert.Equal(t, "https://stock.example", stock.BaseURL)
		// Unset stock fields keep their defaults.
		assert.Equal(t, "input#stocksearchandfilter-query", stock.SearchInput)
	})

	t.Run("rejects unnamed target", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "targets.yaml")
		require.NoError(t, os.WriteFile(path, []byte("targets:\n  - base_url: https://x\n"), 0600))

		_, _, err := LoadCatalog(path)
		assert.Error(t, err)
	})
}
