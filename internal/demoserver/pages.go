package demoserver

// PageVersion is one rendering of a page.
type PageVersion struct {
	HTML string
}

// PageDefinition holds all versions of a single page.
type PageDefinition struct {
	Path        string
	Description string
	Versions    map[int]PageVersion
}

// Asset is a static file the pages reference.
type Asset struct {
	ContentType string
	Body        string
}

// GetAllPages returns all demo page definitions.
func GetAllPages() []PageDefinition {
	return []PageDefinition{
		getHomePage(),
		getCartPage(),
	}
}

// GetAssets returns the static files keyed by path.
func GetAssets() map[string]Asset {
	return map[string]Asset{
		"/static/site.css": {
			ContentType: "text/css",
			Body: `@import "fonts.css";
body { font-family: sans-serif; margin: 0; }
header { background: url(header-bg.svg) repeat-x; padding: 12px; }
.price { color: #2a7d2a; }
`,
		},
		"/static/fonts.css": {
			ContentType: "text/css",
			Body:        `h1, h2 { letter-spacing: 0.02em; }`,
		},
		"/static/header-bg.svg": {
			ContentType: "image/svg+xml",
			Body:        `<svg xmlns="http://www.w3.org/2000/svg" width="4" height="40"><rect width="4" height="40" fill="#eef"/></svg>`,
		},
		"/static/logo.svg": {
			ContentType: "image/svg+xml",
			Body:        `<svg xmlns="http://www.w3.org/2000/svg" width="32" height="32"><circle cx="16" cy="16" r="14" fill="#36c"/></svg>`,
		},
	}
}

// ===== HOME PAGE =====
func getHomePage() PageDefinition {
	return PageDefinition{
		Path:        "/",
		Description: "Storefront home with featured products",
		Versions: map[int]PageVersion{
			1: {
				HTML: `<!DOCTYPE html>
<html>
<head>
    <title>Demo Store - Home</title>
    <link rel="stylesheet" href="/static/site.css">
    <link rel="icon" href="/static/logo.svg">
</head>
<body>
    <header><img src="/static/logo.svg" alt="logo"> Demo Store</header>
    <h1>Featured</h1>
    <ul class="products">
        <li>Teapot <span class="price">$24</span></li>
        <li>Mug <span class="price">$8</span></li>
    </ul>
    <a href="/cart">Cart</a>
</body>
</html>`,
			},
			2: {
				HTML: `<!DOCTYPE html>
<html>
<head>
    <title>Demo Store - Home</title>
    <link rel="stylesheet" href="/static/site.css">
    <link rel="icon" href="/static/logo.svg">
</head>
<body>
    <header><img src="/static/logo.svg" alt="logo"> Demo Store</header>
    <h1>Summer sale</h1>
    <ul class="products">
        <li>Teapot <span class="price">$19</span></li>
        <li>Mug <span class="price">$8</span></li>
        <li>Kettle <span class="price">$35</span></li>
    </ul>
    <a href="/cart">Cart</a>
</body>
</html>`,
			},
		},
	}
}

// ===== CART PAGE =====
func getCartPage() PageDefinition {
	return PageDefinition{
		Path:        "/cart",
		Description: "Shopping cart",
		Versions: map[int]PageVersion{
			1: {
				HTML: `<!DOCTYPE html>
<html>
<head>
    <title>Demo Store - Cart</title>
    <link rel="stylesheet" href="/static/site.css">
</head>
<body>
    <header><img src="/static/logo.svg" alt="logo"> Demo Store</header>
    <h1>Your cart</h1>
    <p>Your cart is empty.</p>
</body>
</html>`,
			},
		},
	}
}
