// geo/countries.go
package geo

// Portfolio regions.
const (
	Africa     = "AFRICA"
	Americas   = "AMERICAS"
	Asia       = "ASIA"
	MiddleEast = "MIDDLE_EAST"
	Europe     = "EUROPE"
)

// Country is one entry of the static portfolio table.
type Country struct {
	ISO3      string
	ISO2      string
	Name      string
	Region    string
	SubRegion string
}

// regionOrder fixes the iteration order used by Regions and the stats output.
var regionOrder = []string{Africa, Americas, Asia, MiddleEast, Europe}

// countries partitions every known country or territory into exactly one sub-region.
var countries = []Country{
	// AFRICA
	{"DZA", "DZ", "Algeria", Africa, "Northern Africa"},
	{"EGY", "EG", "Egypt", Africa, "Northern Africa"},
	{"LBY", "LY", "Libya", Africa, "Northern Africa"},
	{"MRT", "MR", "Mauritania", Africa, "Northern Africa"},
	{"MAR", "MA", "Morocco", Africa, "Northern Africa"},
	{"SDN", "SD", "Sudan", Africa, "Northern Africa"},
	{"TUN", "TN", "Tunisia", Africa, "Northern Africa"},
	{"ESH", "EH", "Western Sahara", Africa, "Northern Africa"},

	{"BDI", "BI", "Burundi", Africa, "Eastern Africa"},
	{"COM", "KM", "Comoros", Africa, "Eastern Africa"},
	{"DJI", "DJ", "Djibouti", Africa, "Eastern Africa"},
	{"ERI", "ER", "Eritrea", Africa, "Eastern Africa"},
	{"ETH", "ET", "Ethiopia", Africa, "Eastern Africa"},
	{"KEN", "KE", "Kenya", Africa, "Eastern Africa"},
	{"MDG", "MG", "Madagascar", Africa, "Eastern Africa"},
	{"MWI", "MW", "Malawi", Africa, "Eastern Africa"},
	{"MUS", "MU", "Mauritius", Africa, "Eastern Africa"},
	{"MYT", "YT", "Mayotte", Africa, "Eastern Africa"},
	{"MOZ", "MZ", "Mozambique", Africa, "Eastern Africa"},
	{"REU", "RE", "Réunion", Africa, "Eastern Africa"},
	{"RWA", "RW", "Rwanda", Africa, "Eastern Africa"},
	{"SYC", "SC", "Seychelles", Africa, "Eastern Africa"},
	{"SOM", "SO", "Somalia", Africa, "Eastern Africa"},
	{"SSD", "SS", "South Sudan", Africa, "Eastern Africa"},
	{"TZA", "TZ", "Tanzania", Africa, "Eastern Africa"},
	{"UGA", "UG", "Uganda", Africa, "Eastern Africa"},
	{"ZMB", "ZM", "Zambia", Africa, "Eastern Africa"},
	{"ZWE", "ZW", "Zimbabwe", Africa, "Eastern Africa"},
	{"IOT", "IO", "British Indian Ocean Territory", Africa, "Eastern Africa"},

	{"AGO", "AO", "Angola", Africa, "Middle Africa"},
	{"CMR", "CM", "Cameroon", Africa, "Middle Africa"},
	{"CAF", "CF", "Central African Republic", Africa, "Middle Africa"},
	{"TCD", "TD", "Chad", Africa, "Middle Africa"},
	{"COG", "CG", "Congo", Africa, "Middle Africa"},
	{"COD", "CD", "Democratic Republic of the Congo", Africa, "Middle Africa"},
	{"GNQ", "GQ", "Equatorial Guinea", Africa, "Middle Africa"},
	{"GAB", "GA", "Gabon", Africa, "Middle Africa"},
	{"STP", "ST", "São Tomé and Príncipe", Africa, "Middle Africa"},

	{"BWA", "BW", "Botswana", Africa, "Southern Africa"},
	{"SWZ", "SZ", "Eswatini", Africa, "Southern Africa"},
	{"LSO", "LS", "Lesotho", Africa, "Southern Africa"},
	{"NAM", "NA", "Namibia", Africa, "Southern Africa"},
	{"ZAF", "ZA", "South Africa", Africa, "Southern Africa"},

	{"BEN", "BJ", "Benin", Africa, "Western Africa"},
	{"BFA", "BF", "Burkina Faso", Africa, "Western Africa"},
	{"CPV", "CV", "Cabo Verde", Africa, "Western Africa"},
	{"CIV", "CI", "Côte d'Ivoire", Africa, "Western Africa"},
	{"GMB", "GM", "Gambia", Africa, "Western Africa"},
	{"GHA", "GH", "Ghana", Africa, "Western Africa"},
	{"GIN", "GN", "Guinea", Africa, "Western Africa"},
	{"GNB", "GW", "Guinea-Bissau", Africa, "Western Africa"},
	{"LBR", "LR", "Liberia", Africa, "Western Africa"},
	{"MLI", "ML", "Mali", Africa, "Western Africa"},
	{"NER", "NE", "Niger", Africa, "Western Africa"},
	{"NGA", "NG", "Nigeria", Africa, "Western Africa"},
	{"SEN", "SN", "Senegal", Africa, "Western Africa"},
	{"SLE", "SL", "Sierra Leone", Africa, "Western Africa"},
	{"TGO", "TG", "Togo", Africa, "Western Africa"},
	{"SHN", "SH", "Saint Helena", Africa, "Western Africa"},

	// AMERICAS
	{"AIA", "AI", "Anguilla", Americas, "Caribbean"},
	{"ATG", "AG", "Antigua and Barbuda", Americas, "Caribbean"},
	{"ABW", "AW", "Aruba", Americas, "Caribbean"},
	{"BHS", "BS", "Bahamas", Americas, "Caribbean"},
	{"BRB", "BB", "Barbados", Americas, "Caribbean"},
	{"BES", "BQ", "Bonaire", Americas, "Caribbean"},
	{"VGB", "VG", "British Virgin Islands", Americas, "Caribbean"},
	{"CYM", "KY", "Cayman Islands", Americas, "Caribbean"},
	{"CUB", "CU", "Cuba", Americas, "Caribbean"},
	{"CUW", "CW", "Curaçao", Americas, "Caribbean"},
	{"DMA", "DM", "Dominica", Americas, "Caribbean"},
	{"DOM", "DO", "Dominican Republic", Americas, "Caribbean"},
	{"GRD", "GD", "Grenada", Americas, "Caribbean"},
	{"GLP", "GP", "Guadeloupe", Americas, "Caribbean"},
	{"HTI", "HT", "Haiti", Americas, "Caribbean"},
	{"JAM", "JM", "Jamaica", Americas, "Caribbean"},
	{"MTQ", "MQ", "Martinique", Americas, "Caribbean"},
	{"MSR", "MS", "Montserrat", Americas, "Caribbean"},
	{"PRI", "PR", "Puerto Rico", Americas, "Caribbean"},
	{"BLM", "BL", "Saint Barthélemy", Americas, "Caribbean"},
	{"KNA", "KN", "Saint Kitts and Nevis", Americas, "Caribbean"},
	{"LCA", "LC", "Saint Lucia", Americas, "Caribbean"},
	{"MAF", "MF", "Saint Martin", Americas, "Caribbean"},
	{"VCT", "VC", "Saint Vincent and the Grenadines", Americas, "Caribbean"},
	{"SXM", "SX", "Sint Maarten", Americas, "Caribbean"},
	{"TTO", "TT", "Trinidad and Tobago", Americas, "Caribbean"},
	{"TCA", "TC", "Turks and Caicos Islands", Americas, "Caribbean"},
	{"VIR", "VI", "United States Virgin Islands", Americas, "Caribbean"},

	{"BLZ", "BZ", "Belize", Americas, "Central America"},
	{"CRI", "CR", "Costa Rica", Americas, "Central America"},
	{"SLV", "SV", "El Salvador", Americas, "Central America"},
	{"GTM", "GT", "Guatemala", Americas, "Central America"},
	{"HND", "HN", "Honduras", Americas, "Central America"},
	{"MEX", "MX", "Mexico", Americas, "Central America"},
	{"NIC", "NI", "Nicaragua", Americas, "Central America"},
	{"PAN", "PA", "Panama", Americas, "Central America"},

	{"BMU", "BM", "Bermuda", Americas, "Northern America"},
	{"CAN", "CA", "Canada", Americas, "Northern America"},
	{"GRL", "GL", "Greenland", Americas, "Northern America"},
	{"SPM", "PM", "Saint Pierre and Miquelon", Americas, "Northern America"},
	{"USA", "US", "United States", Americas, "Northern America"},

	{"ARG", "AR", "Argentina", Americas, "South America"},
	{"BOL", "BO", "Bolivia", Americas, "South America"},
	{"BRA", "BR", "Brazil", Americas, "South America"},
	{"CHL", "CL", "Chile", Americas, "South America"},
	{"COL", "CO", "Colombia", Americas, "South America"},
	{"ECU", "EC", "Ecuador", Americas, "South America"},
	{"FLK", "FK", "Falkland Islands", Americas, "South America"},
	{"GUF", "GF", "French Guiana", Americas, "South America"},
	{"GUY", "GY", "Guyana", Americas, "South America"},
	{"PRY", "PY", "Paraguay", Americas, "South America"},
	{"PER", "PE", "Peru", Americas, "South America"},
	{"SUR", "SR", "Suriname", Americas, "South America"},
	{"URY", "UY", "Uruguay", Americas, "South America"},
	{"VEN", "VE", "Venezuela", Americas, "South America"},

	// ASIA
	{"CHN", "CN", "China", Asia, "Eastern Asia"},
	{"HKG", "HK", "Hong Kong", Asia, "Eastern Asia"},
	{"MAC", "MO", "Macao", Asia, "Eastern Asia"},
	{"JPN", "JP", "Japan", Asia, "Eastern Asia"},
	{"MNG", "MN", "Mongolia", Asia, "Eastern Asia"},
	{"PRK", "KP", "Democratic People's Republic of Korea", Asia, "Eastern Asia"},
	{"KOR", "KR", "Republic of Korea", Asia, "Eastern Asia"},
	{"TWN", "TW", "Taiwan", Asia, "Eastern Asia"},

	{"AFG", "AF", "Afghanistan", Asia, "Southern Asia"},
	{"BGD", "BD", "Bangladesh", Asia, "Southern Asia"},
	{"BTN", "BT", "Bhutan", Asia, "Southern Asia"},
	{"IND", "IN", "India", Asia, "Southern Asia"},
	{"MDV", "MV", "Maldives", Asia, "Southern Asia"},
	{"NPL", "NP", "Nepal", Asia, "Southern Asia"},
	{"PAK", "PK", "Pakistan", Asia, "Southern Asia"},
	{"LKA", "LK", "Sri Lanka", Asia, "Southern Asia"},

	{"BRN", "BN", "Brunei Darussalam", Asia, "South-Eastern Asia"},
	{"KHM", "KH", "Cambodia", Asia, "South-Eastern Asia"},
	{"IDN", "ID", "Indonesia", Asia, "South-Eastern Asia"},
	{"LAO", "LA", "Lao People's Democratic Republic", Asia, "South-Eastern Asia"},
	{"MYS", "MY", "Malaysia", Asia, "South-Eastern Asia"},
	{"MMR", "MM", "Myanmar", Asia, "South-Eastern Asia"},
	{"PHL", "PH", "Philippines", Asia, "South-Eastern Asia"},
	{"SGP", "SG", "Singapore", Asia, "South-Eastern Asia"},
	{"THA", "TH", "Thailand", Asia, "South-Eastern Asia"},
	{"TLS", "TL", "Timor-Leste", Asia, "South-Eastern Asia"},
	{"VNM", "VN", "Vietnam", Asia, "South-Eastern Asia"},

	{"AUS", "AU", "Australia", Asia, "Oceania"},
	{"CXR", "CX", "Christmas Island", Asia, "Oceania"},
	{"CCK", "CC", "Cocos (Keeling) Islands", Asia, "Oceania"},
	{"HMD", "HM", "Heard Island and McDonald Islands", Asia, "Oceania"},
	{"NFK", "NF", "Norfolk Island", Asia, "Oceania"},
	{"NZL", "NZ", "New Zealand", Asia, "Oceania"},
	{"FJI", "FJ", "Fiji", Asia, "Oceania"},
	{"NCL", "NC", "New Caledonia", Asia, "Oceania"},
	{"PNG", "PG", "Papua New Guinea", Asia, "Oceania"},
	{"SLB", "SB", "Solomon Islands", Asia, "Oceania"},
	{"VUT", "VU", "Vanuatu", Asia, "Oceania"},
	{"GUM", "GU", "Guam", Asia, "Oceania"},
	{"KIR", "KI", "Kiribati", Asia, "Oceania"},
	{"MHL", "MH", "Marshall Islands", Asia, "Oceania"},
	{"FSM", "FM", "Micronesia (Federated States of)", Asia, "Oceania"},
	{"NRU", "NR", "Nauru", Asia, "Oceania"},
	{"MNP", "MP", "Northern Mariana Islands", Asia, "Oceania"},
	{"PLW", "PW", "Palau", Asia, "Oceania"},
	{"UMI", "UM", "United States Minor Outlying Islands", Asia, "Oceania"},
	{"ASM", "AS", "American Samoa", Asia, "Oceania"},
	{"COK", "CK", "Cook Islands", Asia, "Oceania"},
	{"PYF", "PF", "French Polynesia", Asia, "Oceania"},
	{"NIU", "NU", "Niue", Asia, "Oceania"},
	{"PCN", "PN", "Pitcairn", Asia, "Oceania"},
	{"WSM", "WS", "Samoa", Asia, "Oceania"},
	{"TKL", "TK", "Tokelau", Asia, "Oceania"},
	{"TON", "TO", "Tonga", Asia, "Oceania"},
	{"TUV", "TV", "Tuvalu", Asia, "Oceania"},
	{"WLF", "WF", "Wallis and Futuna", Asia, "Oceania"},

	// MIDDLE_EAST
	{"TUR", "TR", "Turkey", MiddleEast, "Near-East"},
	{"IRQ", "IQ", "Iraq", MiddleEast, "Near-East"},
	{"ISR", "IL", "Israel", MiddleEast, "Near-East"},
	{"JOR", "JO", "Jordan", MiddleEast, "Near-East"},
	{"KWT", "KW", "Kuwait", MiddleEast, "Near-East"},
	{"LBN", "LB", "Lebanon", MiddleEast, "Near-East"},
	{"PSE", "PS", "State of Palestine", MiddleEast, "Near-East"},
	{"SYR", "SY", "Syrian Arab Republic", MiddleEast, "Near-East"},
	{"CYP", "CY", "Cyprus", MiddleEast, "Near-East"},

	{"ARM", "AM", "Armenia", MiddleEast, "Far-East"},
	{"AZE", "AZ", "Azerbaijan", MiddleEast, "Far-East"},
	{"BHR", "BH", "Bahrain", MiddleEast, "Far-East"},
	{"GEO", "GE", "Georgia", MiddleEast, "Far-East"},
	{"IRN", "IR", "Iran", MiddleEast, "Far-East"},
	{"OMN", "OM", "Oman", MiddleEast, "Far-East"},
	{"QAT", "QA", "Qatar", MiddleEast, "Far-East"},
	{"SAU", "SA", "Saudi Arabia", MiddleEast, "Far-East"},
	{"ARE", "AE", "United Arab Emirates", MiddleEast, "Far-East"},
	{"YEM", "YE", "Yemen", MiddleEast, "Far-East"},
	{"KAZ", "KZ", "Kazakhstan", MiddleEast, "Far-East"},
	{"KGZ", "KG", "Kyrgyzstan", MiddleEast, "Far-East"},
	{"TJK", "TJ", "Tajikistan", MiddleEast, "Far-East"},
	{"TKM", "TM", "Turkmenistan", MiddleEast, "Far-East"},
	{"UZB", "UZ", "Uzbekistan", MiddleEast, "Far-East"},

	// EUROPE
	{"BLR", "BY", "Belarus", Europe, "Eastern Europe"},
	{"BGR", "BG", "Bulgaria", Europe, "Eastern Europe"},
	{"CZE", "CZ", "Czech Republic", Europe, "Eastern Europe"},
	{"HUN", "HU", "Hungary", Europe, "Eastern Europe"},
	{"POL", "PL", "Poland", Europe, "Eastern Europe"},
	{"MDA", "MD", "Republic of Moldova", Europe, "Eastern Europe"},
	{"ROU", "RO", "Romania", Europe, "Eastern Europe"},
	{"RUS", "RU", "Russian Federation", Europe, "Eastern Europe"},
	{"SVK", "SK", "Slovakia", Europe, "Eastern Europe"},
	{"UKR", "UA", "Ukraine", Europe, "Eastern Europe"},

	{"ALA", "AX", "Åland Islands", Europe, "Northern Europe"},
	{"GGY", "GG", "Guernsey", Europe, "Northern Europe"},
	{"JEY", "JE", "Jersey", Europe, "Northern Europe"},
	{"DNK", "DK", "Denmark", Europe, "Northern Europe"},
	{"EST", "EE", "Estonia", Europe, "Northern Europe"},
	{"FRO", "FO", "Faroe Islands", Europe, "Northern Europe"},
	{"FIN", "FI", "Finland", Europe, "Northern Europe"},
	{"ISL", "IS", "Iceland", Europe, "Northern Europe"},
	{"IRL", "IE", "Ireland", Europe, "Northern Europe"},
	{"IMN", "IM", "Isle of Man", Europe, "Northern Europe"},
	{"LVA", "LV", "Latvia", Europe, "Northern Europe"},
	{"LTU", "LT", "Lithuania", Europe, "Northern Europe"},
	{"NOR", "NO", "Norway", Europe, "Northern Europe"},
	{"SJM", "SJ", "Svalbard and Jan Mayen", Europe, "Northern Europe"},
	{"SWE", "SE", "Sweden", Europe, "Northern Europe"},
	{"GBR", "GB", "United Kingdom", Europe, "Northern Europe"},

	{"ALB", "AL", "Albania", Europe, "Southern Europe"},
	{"AND", "AD", "Andorra", Europe, "Southern Europe"},
	{"BIH", "BA", "Bosnia and Herzegovina", Europe, "Southern Europe"},
	{"HRV", "HR", "Croatia", Europe, "Southern Europe"},
	{"GIB", "GI", "Gibraltar", Europe, "Southern Europe"},
	{"GRC", "GR", "Greece", Europe, "Southern Europe"},
	{"VAT", "VA", "Holy See", Europe, "Southern Europe"},
	{"ITA", "IT", "Italy", Europe, "Southern Europe"},
	{"XKX", "XK", "Kosovo", Europe, "Southern Europe"},
	{"MLT", "MT", "Malta", Europe, "Southern Europe"},
	{"MNE", "ME", "Montenegro", Europe, "Southern Europe"},
	{"MKD", "MK", "North Macedonia", Europe, "Southern Europe"},
	{"PRT", "PT", "Portugal", Europe, "Southern Europe"},
	{"SMR", "SM", "San Marino", Europe, "Southern Europe"},
	{"SRB", "RS", "Serbia", Europe, "Southern Europe"},
	{"SVN", "SI", "Slovenia", Europe, "Southern Europe"},
	{"ESP", "ES", "Spain", Europe, "Southern Europe"},

	{"AUT", "AT", "Austria", Europe, "Western Europe"},
	{"BEL", "BE", "Belgium", Europe, "Western Europe"},
	{"FRA", "FR", "France", Europe, "Western Europe"},
	{"DEU", "DE", "Germany", Europe, "Western Europe"},
	{"LIE", "LI", "Liechtenstein", Europe, "Western Europe"},
	{"LUX", "LU", "Luxembourg", Europe, "Western Europe"},
	{"MCO", "MC", "Monaco", Europe, "Western Europe"},
	{"NLD", "NL", "Netherlands", Europe, "Western Europe"},
	{"CHE", "CH", "Switzerland", Europe, "Western Europe"},
}

// aliases maps variant spellings, historical names and territories to the ISO3 code they belong to.
// Keys are matched after folding, so case and diacritics do not matter here.
var aliases = map[string]string{
	"UNITED STATES OF AMERICA": "USA", "AMERICA": "USA", "U S": "USA",
	"UK": "GBR", "BRITAIN": "GBR", "GREAT BRITAIN": "GBR", "ENGLAND": "GBR",
	"SCOTLAND": "GBR", "WALES": "GBR", "NORTHERN IRELAND": "GBR",
	"UAE": "ARE", "EMIRATES": "ARE",
	"DRC": "COD", "DR CONGO": "COD", "CONGO-KINSHASA": "COD", "CONGO KINSHASA": "COD",
	"CONGO (KINSHASA)": "COD", "ZAIRE": "COD",
	"CONGO-BRAZZAVILLE": "COG", "CONGO BRAZZAVILLE": "COG", "REPUBLIC OF CONGO": "COG",
	"REPUBLIC OF THE CONGO": "COG", "CONGO (BRAZZAVILLE)": "COG",
	"IVORY COAST": "CIV", "COTE DIVOIRE": "CIV",
	"CAPE VERDE": "CPV", "CAPE VERDE ISLANDS": "CPV",
	"CZECHIA": "CZE", "CZECH": "CZE",
	"NORTH KOREA": "PRK", "DPRK": "PRK", "KOREA, NORTH": "PRK",
	"SOUTH KOREA": "KOR", "ROK": "KOR", "KOREA": "KOR", "KOREA, SOUTH": "KOR",
	"PALESTINE": "PSE", "PALESTINIAN TERRITORIES": "PSE", "WEST BANK": "PSE", "GAZA": "PSE", "GAZA STRIP": "PSE",
	"SYRIA": "SYR",
	"IRAN (ISLAMIC REPUBLIC OF)": "IRN", "ISLAMIC REPUBLIC OF IRAN": "IRN", "PERSIA": "IRN",
	"RUSSIA": "RUS", "RUSSIAN FED": "RUS", "SOVIET UNION": "RUS", "USSR": "RUS",
	"VIET NAM": "VNM",
	"LAOS": "LAO", "LAO PDR": "LAO",
	"BRUNEI": "BRN",
	"BURMA": "MMR", "MYANMAR (BURMA)": "MMR",
	"EAST TIMOR": "TLS",
	"SWAZILAND": "SWZ", "KINGDOM OF ESWATINI": "SWZ",
	"MACEDONIA": "MKD", "FYROM": "MKD", "NORTH MACEDONIA (FYROM)": "MKD",
	"VATICAN": "VAT", "VATICAN CITY": "VAT", "HOLY SEE (VATICAN CITY)": "VAT",
	"BOSNIA": "BIH", "BOSNIA-HERZEGOVINA": "BIH",
	"MICRONESIA": "FSM", "FEDERATED STATES OF MICRONESIA": "FSM",
	"SAO TOME": "STP",
	"GUINEA BISSAU": "GNB", "GUINEE-BISSAU": "GNB",
	"VIRGIN ISLANDS": "VIR", "US VIRGIN ISLANDS": "VIR", "USVI": "VIR", "VIRGIN ISLANDS (U.S.)": "VIR",
	"BVI": "VGB", "VIRGIN ISLANDS (BRITISH)": "VGB",
	"NETHERLAND ANTILLES": "BES", "NETHERLANDS ANTILLES": "BES", "DUTCH CARIBBEAN": "BES",
	"BONAIRE, SINT EUSTATIUS AND SABA": "BES", "SINT EUSTATIUS": "BES", "SABA": "BES",
	"SAINT MARTIN (FRENCH)": "MAF", "SAINT MARTIN (FRENCH PART)": "MAF",
	"ST MAARTEN": "SXM", "SAINT MARTIN (DUTCH)": "SXM", "SINT MAARTEN (DUTCH PART)": "SXM",
	"HOLLAND": "NLD", "THE NETHERLANDS": "NLD",
	"TURKIYE": "TUR",
	"MOLDOVA": "MDA",
	"TANZANIA, UNITED REPUBLIC OF": "TZA", "UNITED REPUBLIC OF TANZANIA": "TZA", "ZANZIBAR": "TZA",
	"BOLIVIA (PLURINATIONAL STATE OF)": "BOL",
	"VENEZUELA (BOLIVARIAN REPUBLIC OF)": "VEN",
	"KYRGYZ REPUBLIC": "KGZ",
	"SLOVAK REPUBLIC": "SVK",
	"HONG KONG SAR": "HKG", "MACAU": "MAC",
	"TAIWAN, PROVINCE OF CHINA": "TWN", "REPUBLIC OF CHINA": "TWN",
	"PEOPLES REPUBLIC OF CHINA": "CHN", "PRC": "CHN",
	"KOSOVO": "XKX", "XKS": "XKX",
	"SERBIA AND MONTENEGRO": "SRB", "YUGOSLAVIA": "SRB",
	"CEYLON": "LKA", "SIAM": "THA", "DAHOMEY": "BEN", "UPPER VOLTA": "BFA", "KAMPUCHEA": "KHM", "RHODESIA": "ZWE",
	"ASCENSION ISLAND": "SHN", "TRISTAN DA CUNHA": "SHN", "SAINT HELENA, ASCENSION AND TRISTAN DA CUNHA": "SHN",
	"CANARY ISLANDS": "ESP", "CEUTA": "ESP", "MELILLA": "ESP",
	"AZORES": "PRT", "MADEIRA": "PRT",
	"CORSICA": "FRA", "SARDINIA": "ITA", "SICILY": "ITA", "CRETE": "GRC",
	"DIEGO GARCIA": "IOT",
	"OKINAWA": "JPN",
	"WAKE ISLAND": "UMI", "MIDWAY ISLANDS": "UMI", "JOHNSTON ATOLL": "UMI",
	"GUANTANAMO BAY": "CUB",
	"SOMALILAND": "SOM",
	"NORTHERN CYPRUS": "CYP",
	"KURDISTAN": "IRQ", "KURDISTAN REGION": "IRQ",
	"SVALBARD": "SJM", "JAN MAYEN": "SJM",
	"CHANNEL ISLANDS (GUERNSEY)": "GGY", "CHANNEL ISLANDS (JERSEY)": "JEY",
	"FALKLAND ISLANDS (MALVINAS)": "FLK",
}

// nonValues are placeholders exports use instead of leaving the column empty.
var nonValues = map[string]bool{
	"": true, "NONE": true, "NULL": true, "N/A": true, "UNKNOWN": true, "NAN": true, "-": true,
}
