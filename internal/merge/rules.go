package merge

// Attribute is the profile value a field receives
type Attribute int

const (
	AttrNone Attribute = iota
	AttrFullName
	AttrGivenName
	AttrSurname
	AttrEmail
	AttrAddress
	AttrDate
	AttrPhone
)

// String returns a string representation of the Attribute
func (a Attribute) String() string {
	switch a {
	case AttrFullName:
		return "full_name"
	case AttrGivenName:
		return "given_name"
	case AttrSurname:
		return "surname"
	case AttrEmail:
		return "email"
	case AttrAddress:
		return "address"
	case AttrDate:
		return "date"
	case AttrPhone:
		return "phone"
	default:
		return "none"
	}
}

// Rule maps field-name fragments in one language to a profile attribute.
// A rule matches when a word of the field name starts with any keyword and
// the name contains none of the excludes.
type Rule struct {
	Language  string
	Keywords  []string
	Excludes  []string
	Attribute Attribute
}

// DefaultRules returns the keyword table in priority order. The first
// matching rule wins.
func DefaultRules() []Rule {
	return []Rule{
		// Combined name fields must win over the given-name fragments below
		{
			Language:  "tr",
			Keywords:  []string{"ad soyad", "adı soyadı", "ad-soyad", "adsoyad", "isim soyisim", "ad ve soyad"},
			Attribute: AttrFullName,
		},
		{
			Language:  "en",
			Keywords:  []string{"full name", "fullname", "name surname", "name and surname"},
			Attribute: AttrFullName,
		},

		{
			Language:  "tr",
			Keywords:  []string{"ad", "isim"},
			Excludes:  []string{"soyad", "soyisim", "adres", "address"},
			Attribute: AttrGivenName,
		},
		{
			Language:  "en",
			Keywords:  []string{"first name", "given name", "name"},
			Excludes:  []string{"surname", "last name", "lastname", "family name", "user name", "username"},
			Attribute: AttrGivenName,
		},

		{
			Language:  "tr",
			Keywords:  []string{"soyad", "soyisim"},
			Attribute: AttrSurname,
		},
		{
			Language:  "en",
			Keywords:  []string{"surname", "last name", "lastname", "family name"},
			Attribute: AttrSurname,
		},

		{
			Language:  "tr",
			Keywords:  []string{"e-posta", "eposta", "e posta"},
			Attribute: AttrEmail,
		},
		{
			Language:  "en",
			Keywords:  []string{"e-mail", "email", "mail"},
			Excludes:  []string{"mailing"},
			Attribute: AttrEmail,
		},

		{
			Language:  "tr",
			Keywords:  []string{"adres", "ikamet"},
			Attribute: AttrAddress,
		},
		{
			Language:  "en",
			Keywords:  []string{"address"},
			Attribute: AttrAddress,
		},

		// Birth dates are profile data the client record does not carry
		{
			Language:  "tr",
			Keywords:  []string{"tarih"},
			Excludes:  []string{"doğum"},
			Attribute: AttrDate,
		},
		{
			Language:  "en",
			Keywords:  []string{"date"},
			Excludes:  []string{"birth"},
			Attribute: AttrDate,
		},

		{
			Language:  "tr",
			Keywords:  []string{"telefon", "gsm", "cep tel"},
			Attribute: AttrPhone,
		},
		{
			Language:  "en",
			Keywords:  []string{"phone", "mobile", "tel"},
			Attribute: AttrPhone,
		},
	}
}
