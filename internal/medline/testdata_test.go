// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package medline

import "github.com/pdiddy/pubmed-engine/pkg/types"

const sampleEfetchXML = `<?xml version="1.0" ?>
<!DOCTYPE PubmedArticleSet PUBLIC "-//NLM//DTD PubMedArticle, 1st January 2025//EN" "https://dtd.nlm.nih.gov/ncbi/pubmed/out/pubmed_250101.dtd">
<PubmedArticleSet>
<PubmedArticle>
  <MedlineCitation Status="MEDLINE" Owner="NLM">
    <PMID Version="1">31452104</PMID>
    <Article PubModel="Print">
      <Journal><Title>Journal of Testing</Title></Journal>
      <ArticleTitle>  Streaming extraction of citations.  </ArticleTitle>
      <Abstract>
        <AbstractText Label="BACKGROUND">Background: X.</AbstractText>
        <AbstractText Label="EMPTY"></AbstractText>
        <AbstractText Label="METHODS">
          Methods: Y.
        </AbstractText>
      </Abstract>
      <AuthorList CompleteYN="Y">
        <Author ValidYN="Y"><LastName>Smith</LastName><ForeName>John A</ForeName><Initials>JA</Initials></Author>
        <Author ValidYN="Y"><LastName> Doe </LastName><ForeName>Jane</ForeName></Author>
      </AuthorList>
    </Article>
    <CommentsCorrectionsList>
      <CommentsCorrections RefType="ErratumIn"><RefSource>J Test. 2020</RefSource><PMID Version="1">99999999</PMID></CommentsCorrections>
    </CommentsCorrectionsList>
  </MedlineCitation>
  <PubmedData>
    <ReferenceList>
      <Reference><Citation>First cited work. J Test. 2001.</Citation><ArticleIdList><ArticleId IdType="pubmed">111</ArticleId></ArticleIdList></Reference>
      <Reference><Citation>Second cited work &amp; more.</Citation></Reference>
    </ReferenceList>
  </PubmedData>
</PubmedArticle>
<PubmedArticle>
  <MedlineCitation>
    <PMID Version="1">100</PMID>
    <Article>
      <ArticleTitle>Test Title</ArticleTitle>
      <AuthorList>
        <Author><LastName>A</LastName><ForeName>B</ForeName></Author>
        <Author><CollectiveName>Study Group</CollectiveName></Author>
      </AuthorList>
    </Article>
  </MedlineCitation>
</PubmedArticle>
</PubmedArticleSet>
`

// synthesize builds the event stream PubMed would produce for recs.
func synthesize(recs ...types.Record) []Event {
	var evs []Event
	add := func(e ...Event) { evs = append(evs, e...) }
	leaf := func(tag, text string) { add(Enter(tag), Exit(tag, text)) }

	for _, r := range recs {
		add(Enter(TagArticle), Enter("MedlineCitation"))
		leaf(TagPMID, r.PMID)
		add(Enter(TagArticleBody))
		leaf(TagTitle, r.Title)
		if r.Abstract != "" {
			add(Enter("Abstract"))
			leaf(TagAbstractText, r.Abstract)
			add(Exit("Abstract", ""))
		}
		if len(r.Authors) > 0 {
			add(Enter(TagAuthorList))
			for _, a := range r.Authors {
				add(Enter(TagAuthor))
				leaf(TagLastName, a.LastName)
				leaf(TagForeName, a.ForeName)
				add(Exit(TagAuthor, ""))
			}
			add(Exit(TagAuthorList, ""))
		}
		add(Exit(TagArticleBody, ""), Exit("MedlineCitation", ""))
		if len(r.References) > 0 {
			add(Enter("PubmedData"), Enter(TagReferenceList))
			for _, c := range r.References {
				add(Enter(TagReference))
				leaf(TagCitation, c)
				add(Exit(TagReference, ""))
			}
			add(Exit(TagReferenceList, ""), Exit("PubmedData", ""))
		}
		add(Exit(TagArticle, ""))
	}
	return evs
}

// target fills the derived fields the extractor computes.
func target(r types.Record) types.Record {
	r.DocURL = types.DocURL(r.PMID)
	r.AuthorString = types.AuthorString(r.Authors)
	if r.Authors == nil {
		r.Authors = []types.Author{}
	}
	if r.References == nil {
		r.References = []string{}
	}
	return r
}
