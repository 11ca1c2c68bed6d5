package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want View
	}{
		{"https://shop.example/Ceremic/?product=7", View{Page: PageProduct, ProductID: 7}},
		{"/Ceremic/collections?product=12&ref=share", View{Page: PageProduct, ProductID: 12}},
		{"/Ceremic/collections?product=abc", View{Page: PageCollections}},
		{"/Ceremic/collections?product=-3", View{Page: PageCollections}},
		{"/Ceremic/thank-you", View{Page: PageThankYou}},
		{"/thank-you/", View{Page: PageThankYou}},
		{"/Ceremic/Cart", View{Page: PageCart}},
		{"/orders", View{Page: PageOrders}},
		{"/", View{Page: PageHome}},
		{"", View{Page: PageHome}},
		{"/nowhere", View{Page: PageHome}},
		{"%zz", View{Page: PageHome}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse(tc.in))
		})
	}
}

func TestProductLink_RoundTrip(t *testing.T) {
	link, err := ProductLink("https://shop.example/Ceremic/?ref=wa", 42)

	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/Ceremic/?product=42&ref=wa", link)
	assert.Equal(t, View{Page: PageProduct, ProductID: 42}, Parse(link))
}

func TestProductLink_InvalidBase(t *testing.T) {
	_, err := ProductLink("://bad", 1)
	assert.Error(t, err)
}
